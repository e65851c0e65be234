package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrClosed = errors.New("registry closed")

// ResultSink receives every finished game. Record must not block.
type ResultSink interface {
	Record(room.Result)
}

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	CreatorID string
	Password  *string
	Conn      room.Conn
	Reply     chan createResult
}

type createResult struct {
	room *room.Room
	err  error
}

type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

type DeleteRoom struct {
	ID string
}

type ListRooms struct {
	Reply chan []types.RoomSummary
}

type RoomsOf struct {
	PlayerID string
	Reply    chan []*room.Room
}

type Subscribe struct {
	Conn room.Conn
}

type Unsubscribe struct {
	ConnID string
}

type ShutdownHub struct{}

type roomChanged struct{ summary room.Summary }

type roomClosed struct {
	id     string
	result *room.Result
}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (DeleteRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (RoomsOf) isHubMsg()     {}
func (Subscribe) isHubMsg()   {}
func (Unsubscribe) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}
func (roomChanged) isHubMsg() {}
func (roomClosed) isHubMsg()  {}

type entry struct {
	room    *room.Room
	summary room.Summary
}

// Hub is the process-wide room directory. It never waits on a room: rooms
// report to it through its inbox, and it only ever cancels them.
type Hub struct {
	inbox       chan HubMsg
	rooms       map[string]*entry
	order       []string // creation order
	subscribers map[string]room.Conn
	roomCfg     room.Config
	results     ResultSink
	newCode     func() (string, error)
	base        *zap.Logger
	log         *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewHub(parent context.Context, roomCfg room.Config, results ResultSink, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:       make(chan HubMsg, 256),
		rooms:       make(map[string]*entry),
		subscribers: make(map[string]room.Conn),
		roomCfg:     roomCfg,
		results:     results,
		newCode:     GenerateCode,
		base:        log,
		log:         log.Named("hub"),
		ctx:         ctx,
		cancel:      cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) send(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func ask[T any](ctx context.Context, h *Hub, build func(chan T) HubMsg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if !h.send(build(reply)) {
		return zero, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create opens a waiting room seated with its creator.
func (h *Hub) Create(ctx context.Context, creatorID string, password *string, conn room.Conn) (*room.Room, error) {
	res, err := ask(ctx, h, func(reply chan createResult) HubMsg {
		return CreateRoom{CreatorID: creatorID, Password: password, Conn: conn, Reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return res.room, res.err
}

func (h *Hub) Get(ctx context.Context, id string) (*room.Room, error) {
	rm, err := ask(ctx, h, func(reply chan *room.Room) HubMsg { return GetRoom{ID: id, Reply: reply} })
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

// Delete removes the room and cancels its timers. Unknown ids are ignored.
func (h *Hub) Delete(id string) {
	h.send(DeleteRoom{ID: id})
}

// List returns a snapshot of every room in creation order.
func (h *Hub) List(ctx context.Context) ([]types.RoomSummary, error) {
	return ask(ctx, h, func(reply chan []types.RoomSummary) HubMsg { return ListRooms{Reply: reply} })
}

// RoomsOf returns the rooms currently seating playerID.
func (h *Hub) RoomsOf(ctx context.Context, playerID string) ([]*room.Room, error) {
	return ask(ctx, h, func(reply chan []*room.Room) HubMsg { return RoomsOf{PlayerID: playerID, Reply: reply} })
}

// Subscribe registers conn for roomsUpdate pushes.
func (h *Hub) Subscribe(conn room.Conn) { h.send(Subscribe{Conn: conn}) }

func (h *Hub) Unsubscribe(connID string) { h.send(Unsubscribe{ConnID: connID}) }

// Shutdown closes every room and stops the registry.
func (h *Hub) Shutdown() { h.send(ShutdownHub{}) }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) RoomChanged(s room.Summary) { h.send(roomChanged{summary: s}) }

func (h *Hub) RoomClosed(id string, result *room.Result) {
	h.send(roomClosed{id: id, result: result})
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				rm, err := h.create(msg)
				msg.Reply <- createResult{room: rm, err: err}
				if err == nil {
					h.publish()
				}

			case GetRoom:
				var rm *room.Room
				if e := h.rooms[msg.ID]; e != nil {
					rm = e.room
				}
				msg.Reply <- rm // May be nil

			case DeleteRoom:
				if e := h.rooms[msg.ID]; e != nil {
					e.room.Close()
					h.remove(msg.ID)
					h.publish()
				}

			case ListRooms:
				msg.Reply <- h.list()

			case RoomsOf:
				var out []*room.Room
				for _, id := range h.order {
					if e := h.rooms[id]; slices.Contains(e.summary.Players, msg.PlayerID) {
						out = append(out, e.room)
					}
				}
				msg.Reply <- out

			case Subscribe:
				h.subscribers[msg.Conn.ID] = msg.Conn

			case Unsubscribe:
				delete(h.subscribers, msg.ConnID)

			case roomChanged:
				if e := h.rooms[msg.summary.ID]; e != nil {
					e.summary = msg.summary
					h.publish()
				}

			case roomClosed:
				if h.rooms[msg.id] != nil {
					h.remove(msg.id)
					h.publish()
				}
				if msg.result != nil && h.results != nil {
					h.results.Record(*msg.result)
				}

			case ShutdownHub:
				for _, e := range h.rooms {
					e.room.Close()
				}
				clear(h.rooms)
				h.order = nil
				h.log.Info("registry shut down")
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(msg CreateRoom) (*room.Room, error) {
	var code string
	for {
		c, err := h.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if h.rooms[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}

	password := msg.Password
	if password != nil && *password == "" {
		password = nil
	}

	rm := room.New(h.ctx, room.Params{
		ID:        code,
		CreatorID: msg.CreatorID,
		Password:  password,
		Creator:   msg.Conn,
	}, h.roomCfg, h, h.base)

	h.rooms[code] = &entry{
		room: rm,
		summary: room.Summary{
			ID:          code,
			Players:     []string{msg.CreatorID},
			Status:      engine.StatusWaiting,
			HasPassword: password != nil,
		},
	}
	h.order = append(h.order, code)
	h.log.Info("room created", zap.String("room", code), zap.String("creator", msg.CreatorID))
	return rm, nil
}

func (h *Hub) remove(id string) {
	delete(h.rooms, id)
	h.order = slices.DeleteFunc(h.order, func(c string) bool { return c == id })
}

func (h *Hub) list() []types.RoomSummary {
	return lo.Map(h.order, func(id string, _ int) types.RoomSummary {
		s := h.rooms[id].summary
		return types.RoomSummary{
			ID:           s.ID,
			PlayersCount: len(s.Players),
			Status:       s.Status,
			HasPassword:  s.HasPassword,
		}
	})
}

// publish pushes the listing to every connection without blocking.
func (h *Hub) publish() {
	msg := types.Message(types.EvtRoomsUpdate, h.list())
	for id, c := range h.subscribers {
		select {
		case c.Outbox <- msg:
		default:
			h.log.Warn("subscriber outbox full, dropping listing", zap.String("conn", id))
		}
	}
}
