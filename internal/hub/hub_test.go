package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSink struct {
	mu      sync.Mutex
	results []room.Result
}

func (s *recordingSink) Record(r room.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func newHub(t *testing.T, sink ResultSink) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := room.Config{FillDuration: time.Minute, GracePeriod: time.Minute, InboxSize: 16}
	return NewHub(ctx, cfg, sink, zaptest.NewLogger(t))
}

func conn(id string) (room.Conn, chan types.ServerMessage) {
	ch := make(chan types.ServerMessage, 32)
	return room.Conn{ID: id, Outbox: ch}, ch
}

// waitListing drains ch until a roomsUpdate satisfying ok arrives.
func waitListing(t *testing.T, ch <-chan types.ServerMessage, ok func([]types.RoomSummary) bool) []types.RoomSummary {
	t.Helper()
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case msg := <-ch:
			if msg.Event != types.EvtRoomsUpdate {
				continue
			}
			list := msg.Data.([]types.RoomSummary)
			if ok(list) {
				return list
			}
		case <-deadline:
			t.Fatalf("timed out waiting for listing")
			return nil
		}
	}
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	c, _ := conn("c1")

	rm1, err := h.Create(ctx, "alice", nil, c)
	require.NoError(t, err)

	rm2, err := h.Get(ctx, rm1.ID())
	require.NoError(t, err)
	require.Same(t, rm1, rm2)
	require.Len(t, rm1.ID(), codeLength)
}

func TestHub_Get_Unknown(t *testing.T) {
	h := newHub(t, nil)
	_, err := h.Get(context.Background(), "NOPE00")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestHub_Create_RegeneratesOnCollision(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	var mu sync.Mutex
	h.newCode = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	c, _ := conn("c1")
	first, err := h.Create(ctx, "alice", nil, c)
	require.NoError(t, err)
	second, err := h.Create(ctx, "bob", nil, c)
	require.NoError(t, err)
	require.Equal(t, "AAAAAA", first.ID())
	require.Equal(t, "BBBBBB", second.ID())
}

func TestHub_List_CreationOrderAndPasswordFlag(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	c, _ := conn("c1")
	secret := "pw"
	empty := ""

	a, _ := h.Create(ctx, "alice", nil, c)
	b, _ := h.Create(ctx, "bob", &secret, c)
	d, _ := h.Create(ctx, "dave", &empty, c)

	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []types.RoomSummary{
		{ID: a.ID(), PlayersCount: 1, Status: engine.StatusWaiting, HasPassword: false},
		{ID: b.ID(), PlayersCount: 1, Status: engine.StatusWaiting, HasPassword: true},
		{ID: d.ID(), PlayersCount: 1, Status: engine.StatusWaiting, HasPassword: false},
	}, list)

	// Snapshot: later changes do not leak into a returned listing.
	h.Delete(a.ID())
	require.Len(t, list, 3)
	list, _ = h.List(ctx)
	require.Len(t, list, 2)
}

func TestHub_Delete_IdempotentAndCancelsRoom(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	watcher, updates := conn("watcher")
	h.Subscribe(watcher)

	c, _ := conn("c1")
	rm, err := h.Create(ctx, "alice", nil, c)
	require.NoError(t, err)
	waitListing(t, updates, func(l []types.RoomSummary) bool { return len(l) == 1 })

	h.Delete(rm.ID())
	h.Delete(rm.ID())
	h.Delete("NOPE00")

	waitListing(t, updates, func(l []types.RoomSummary) bool { return len(l) == 0 })
	select {
	case <-rm.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("deleted room still running")
	}
	_, err = h.Get(ctx, rm.ID())
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestHub_TracksRoomChangesAndPlayers(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	watcher, updates := conn("watcher")
	h.Subscribe(watcher)

	aliceConn, _ := conn("a1")
	bobConn, _ := conn("b1")
	rm, err := h.Create(ctx, "alice", nil, aliceConn)
	require.NoError(t, err)

	_, err = rm.Join(ctx, "bob", nil, bobConn)
	require.NoError(t, err)

	waitListing(t, updates, func(l []types.RoomSummary) bool {
		return len(l) == 1 && l[0].PlayersCount == 2 && l[0].Status == engine.StatusFilling
	})

	rooms, err := h.RoomsOf(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Same(t, rm, rooms[0])

	rooms, err = h.RoomsOf(ctx, "carol")
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestHub_CreatorLeavingWaitingRoomDropsItFromListing(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	watcher, updates := conn("watcher")
	h.Subscribe(watcher)

	c, _ := conn("a1")
	rm, err := h.Create(ctx, "alice", nil, c)
	require.NoError(t, err)
	waitListing(t, updates, func(l []types.RoomSummary) bool { return len(l) == 1 })

	require.NoError(t, rm.Leave(ctx, "alice", "a1", false))

	waitListing(t, updates, func(l []types.RoomSummary) bool { return len(l) == 0 })
	_, err = h.Get(ctx, rm.ID())
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestHub_RecordsFinishedGames(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	h := newHub(t, sink)

	aliceConn, _ := conn("a1")
	bobConn, _ := conn("b1")
	rm, _ := h.Create(ctx, "alice", nil, aliceConn)
	_, err := rm.Join(ctx, "bob", nil, bobConn)
	require.NoError(t, err)

	require.NoError(t, rm.Leave(ctx, "bob", "", false))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "alice", sink.results[0].Winner)
	require.Equal(t, engine.ReasonOpponentLeft, sink.results[0].Reason)
}

func TestHub_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	watcher, updates := conn("watcher")
	h.Subscribe(watcher)
	h.Unsubscribe("watcher")

	c, _ := conn("a1")
	_, err := h.Create(ctx, "alice", nil, c)
	require.NoError(t, err)
	_, _ = h.List(ctx) // hub has processed the create

	select {
	case msg := <-updates:
		t.Fatalf("unsubscribed connection got %+v", msg)
	default:
	}
}

func TestHub_ShutdownClosesRooms(t *testing.T) {
	ctx := context.Background()
	h := newHub(t, nil)
	c, _ := conn("a1")
	rm, err := h.Create(ctx, "alice", nil, c)
	require.NoError(t, err)

	h.Shutdown()

	select {
	case <-rm.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("room survived registry shutdown")
	}
	<-h.Done()
	_, err = h.List(ctx)
	require.ErrorIs(t, err, ErrClosed)
}
