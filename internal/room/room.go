package room

import (
	"context"
	"errors"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
	"github.com/DoyleJ11/number-duel-backend/internal/timer"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
	"go.uber.org/zap"
)

var ErrIncorrectPassword = errors.New("incorrect password")
var ErrRoomGone = errors.New("room closed")

// Directory is told about every visible change and about closure. Calls are
// made from inside the room loop and must not wait on the room.
type Directory interface {
	RoomChanged(Summary)
	RoomClosed(id string, result *Result)
}

type Config struct {
	FillDuration time.Duration
	GracePeriod  time.Duration
	InboxSize    int
}

type Params struct {
	ID        string
	CreatorID string
	Password  *string // nil means public
	Creator   Conn
}

type Room struct {
	id        string
	creatorID string
	password  *string
	cfg       Config

	inbox        chan Msg
	state        engine.State
	conns        map[string]Conn
	fillDeadline time.Time
	fillTimer    *timer.Handle
	graceTimers  map[string]*timer.Handle
	published    Summary
	closed       bool

	dir    Directory
	log    *zap.Logger
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, p Params, cfg Config, dir Directory, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 64
	}

	r := &Room{
		id:          p.ID,
		creatorID:   p.CreatorID,
		password:    p.Password,
		cfg:         cfg,
		inbox:       make(chan Msg, cfg.InboxSize),
		state:       engine.NewState(p.CreatorID),
		conns:       map[string]Conn{p.CreatorID: p.Creator},
		graceTimers: make(map[string]*timer.Handle),
		dir:         dir,
		log:         log.Named("room").With(zap.String("room", p.ID)),
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
	r.published = r.summary()

	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

// Done is closed once the room has been deleted or shut down.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Send queues m for the room loop. It reports false if the room is gone.
func (r *Room) Send(m Msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Close stops the loop and cancels every pending timer without notifying the
// directory. Used by the registry for deletes it initiates itself.
func (r *Room) Close() {
	r.cancel()
}

// Join admits or reconnects playerID and waits for the verdict.
func (r *Room) Join(ctx context.Context, playerID string, password *string, conn Conn) (bool, error) {
	reply := make(chan JoinResult, 1)
	if !r.Send(Join{PlayerID: playerID, Password: password, Conn: conn, Reply: reply}) {
		return false, ErrRoomGone
	}
	select {
	case res := <-reply:
		return res.Reconnected, res.Err
	case <-r.Done():
		select {
		case res := <-reply:
			return res.Reconnected, res.Err
		default:
			return false, ErrRoomGone
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Leave removes playerID and waits until the room has handled it.
func (r *Room) Leave(ctx context.Context, playerID, connID string, abrupt bool) error {
	done := make(chan struct{})
	if !r.Send(Leave{PlayerID: playerID, ConnID: connID, Abrupt: abrupt, Done: done}) {
		return ErrRoomGone
	}
	select {
	case <-done:
		return nil
	case <-r.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the room, or false if the room is gone.
func (r *Room) State(ctx context.Context) (View, bool) {
	reply := make(chan View, 1)
	if !r.Send(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-r.Done():
		return View{}, false
	case <-ctx.Done():
		return View{}, false
	}
}

func (r *Room) loop() {
	defer r.stopTimers()
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				// The directory hears about the new seat before the joiner does.
				res := r.handleJoin(msg)
				r.publish()
				msg.Reply <- res

			case SubmitBoard:
				r.handleSubmitBoard(msg)

			case MakeMove:
				r.handleMakeMove(msg)

			case Leave:
				r.handleLeave(msg)
				if !r.closed {
					r.publish()
				}
				if msg.Done != nil {
					close(msg.Done)
				}

			case fillExpired:
				r.handleFillExpired(msg)

			case graceExpired:
				r.handleGraceExpired(msg)

			case GetState:
				msg.Reply <- r.view()

			}

			if r.closed {
				return
			}
			r.publish()
		}
	}
}

// close deletes the room: timers are cancelled before the directory hears
// about it, so no expiry can act on a room that no longer exists.
func (r *Room) close(result *Result) {
	r.stopTimers()
	r.closed = true
	r.log.Info("room closed", zap.Bool("finished", result != nil))
	r.dir.RoomClosed(r.id, result)
	r.cancel()
}

func (r *Room) stopTimers() {
	r.fillTimer.Cancel()
	r.fillTimer = nil
	for p, h := range r.graceTimers {
		h.Cancel()
		delete(r.graceTimers, p)
	}
}

// arm starts a timer whose expiry is delivered back through the inbox, so the
// handler runs with exclusive access and can re-validate the room.
func (r *Room) arm(d time.Duration, expired func(*timer.Handle) Msg) *timer.Handle {
	var h *timer.Handle
	ready := make(chan struct{})
	h = timer.Arm(d, func() {
		<-ready
		r.Send(expired(h))
	})
	close(ready)
	return h
}

func (r *Room) summary() Summary {
	return Summary{
		ID:          r.id,
		Players:     slices.Clone(r.state.Players),
		Status:      r.state.Status,
		HasPassword: r.password != nil,
	}
}

func (r *Room) publish() {
	s := r.summary()
	if s.Status == r.published.Status && slices.Equal(s.Players, r.published.Players) {
		return
	}
	r.published = s
	r.dir.RoomChanged(s)
}

func (r *Room) fillRemaining() time.Duration {
	if r.state.Status != engine.StatusFilling {
		return 0
	}
	return max(0, r.fillDeadline.Sub(r.now()))
}

func (r *Room) view() View {
	v := View{
		Status:        r.state.Status,
		Players:       slices.Clone(r.state.Players),
		Boards:        maps.Clone(r.state.Boards),
		Crossed:       slices.Clone(r.state.Crossed),
		Turn:          r.state.Turn,
		Scores:        maps.Clone(r.state.Scores),
		FillRemaining: r.fillRemaining(),
	}
	for _, p := range r.state.Players {
		if _, ok := r.conns[p]; ok {
			v.Connected = append(v.Connected, p)
		}
		if _, ok := r.graceTimers[p]; ok {
			v.Disconnected = append(v.Disconnected, p)
		}
	}
	return v
}

func (r *Room) result() *Result {
	return &Result{
		RoomID:     r.id,
		Players:    slices.Clone(r.state.Players),
		Winner:     r.state.Winner,
		Reason:     r.state.Reason,
		Crossed:    slices.Clone(r.state.Crossed),
		Scores:     maps.Clone(r.state.Scores),
		FinishedAt: r.now(),
	}
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for p := range r.conns {
		r.sendTo(p, msg)
	}
}

// sendTo never blocks: a connection whose outbox is full misses the frame and
// catches up through gameSync when it reconnects.
func (r *Room) sendTo(playerID string, msg types.ServerMessage) {
	c, ok := r.conns[playerID]
	if !ok {
		return
	}
	select {
	case c.Outbox <- msg:
	default:
		r.log.Warn("outbox full, dropping frame",
			zap.String("player", playerID), zap.String("event", msg.Event))
	}
}
