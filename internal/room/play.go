package room

import (
	"slices"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
	"github.com/DoyleJ11/number-duel-backend/internal/timer"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const closedByCreator = "Room closed by creator"

func (r *Room) handleJoin(msg Join) JoinResult {
	// A seated player is always let back in, whatever the password or phase.
	if slices.Contains(r.state.Players, msg.PlayerID) {
		r.reconnect(msg.PlayerID, msg.Conn)
		return JoinResult{Reconnected: true}
	}

	if r.password != nil && (msg.Password == nil || *msg.Password != *r.password) {
		return JoinResult{Err: ErrIncorrectPassword}
	}

	events, next, err := engine.Apply(r.state, engine.Command{Type: engine.CmdJoin, PlayerID: msg.PlayerID})
	if err != nil {
		return JoinResult{Err: err}
	}
	r.state = next
	r.conns[msg.PlayerID] = msg.Conn
	r.log.Info("player joined", zap.String("player", msg.PlayerID))

	r.broadcast(types.Message(types.EvtPlayerJoined, types.PlayerJoined{
		RoomID:  r.id,
		Players: slices.Clone(r.state.Players),
	}))

	if engine.ContainsEvent(events, engine.EvtFillingStarted) {
		r.fillDeadline = r.now().Add(r.cfg.FillDuration)
		r.fillTimer = r.arm(r.cfg.FillDuration, func(h *timer.Handle) Msg { return fillExpired{handle: h} })
		r.log.Info("filling started", zap.Duration("duration", r.cfg.FillDuration))
		r.broadcast(types.Message(types.EvtStartFilling, types.StartFilling{Duration: seconds(r.cfg.FillDuration)}))
	}
	return JoinResult{}
}

func (r *Room) reconnect(playerID string, conn Conn) {
	if h, ok := r.graceTimers[playerID]; ok {
		h.Cancel()
		delete(r.graceTimers, playerID)
	}
	r.conns[playerID] = conn
	r.log.Info("player reconnected", zap.String("player", playerID))
	r.sendTo(playerID, r.syncMessage(playerID))
}

func (r *Room) syncMessage(playerID string) types.ServerMessage {
	return types.Message(types.EvtGameSync, types.GameSync{
		Status:         r.state.Status,
		Board:          r.state.Boards[playerID],
		CrossedNumbers: slices.Clone(r.state.Crossed),
		Turn:           lo.EmptyableToPtr(r.state.Turn),
		Scores:         lo.Assign(r.state.Scores),
		Timer:          seconds(r.fillRemaining()),
	})
}

func (r *Room) handleSubmitBoard(msg SubmitBoard) {
	events, next, err := engine.Apply(r.state, engine.Command{
		Type:     engine.CmdSubmitBoard,
		PlayerID: msg.PlayerID,
		Board:    msg.Board,
	})
	if err != nil {
		r.log.Debug("board submission dropped", zap.String("player", msg.PlayerID), zap.Error(err))
		return
	}
	r.state = next
	if engine.ContainsEvent(events, engine.EvtGameStarted) {
		r.startPlaying()
	}
}

func (r *Room) startPlaying() {
	r.fillTimer.Cancel()
	r.fillTimer = nil
	r.log.Info("game started", zap.String("turn", r.state.Turn))
	r.broadcast(types.Message(types.EvtGameStart, types.GameStart{Turn: r.state.Turn}))
}

func (r *Room) handleFillExpired(msg fillExpired) {
	if msg.handle != r.fillTimer || r.state.Status != engine.StatusFilling {
		return
	}
	r.fillTimer = nil

	var filled []string
	for _, p := range slices.Clone(r.state.Players) {
		if _, ok := r.state.Boards[p]; ok {
			continue
		}
		events, next, err := engine.Apply(r.state, engine.Command{
			Type:     engine.CmdSubmitBoard,
			PlayerID: p,
			Board:    engine.AutoFill(engine.Board{}),
		})
		if err != nil {
			r.log.Error("auto-fill rejected", zap.String("player", p), zap.Error(err))
			continue
		}
		r.state = next
		filled = append(filled, p)
		if engine.ContainsEvent(events, engine.EvtGameStarted) {
			r.startPlaying()
		}
	}

	// Auto-filled players learn their board through a sync.
	for _, p := range filled {
		r.log.Info("board auto-filled", zap.String("player", p))
		r.sendTo(p, r.syncMessage(p))
	}
}

func (r *Room) handleMakeMove(msg MakeMove) {
	events, next, err := engine.Apply(r.state, engine.Command{
		Type:     engine.CmdMakeMove,
		PlayerID: msg.PlayerID,
		Number:   msg.Number,
	})
	if err != nil {
		r.log.Debug("move dropped", zap.String("player", msg.PlayerID), zap.Int("number", msg.Number), zap.Error(err))
		return
	}
	r.state = next

	r.broadcast(types.Message(types.EvtMoveMade, types.MoveMade{
		Number:         msg.Number,
		CrossedNumbers: slices.Clone(r.state.Crossed),
		Turn:           r.state.Turn,
		Scores:         lo.Assign(r.state.Scores),
	}))

	if engine.ContainsEvent(events, engine.EvtGameWon) {
		r.log.Info("game won", zap.String("winner", r.state.Winner))
		r.broadcast(types.Message(types.EvtGameOver, types.GameOver{Winner: r.state.Winner}))
		r.close(r.result())
	}
}

func (r *Room) handleLeave(msg Leave) {
	p := msg.PlayerID
	if !slices.Contains(r.state.Players, p) {
		return
	}
	if msg.Abrupt {
		if c, ok := r.conns[p]; !ok || c.ID != msg.ConnID {
			r.log.Debug("stale disconnect ignored", zap.String("player", p), zap.String("conn", msg.ConnID))
			return
		}
	}

	switch r.state.Status {
	case engine.StatusWaiting, engine.StatusFinished:
		// A waiting room never outlives its creator.
		if r.state.Status == engine.StatusWaiting && p == r.creatorID {
			r.broadcast(types.Message(types.EvtRoomClosed, closedByCreator))
			r.close(nil)
			return
		}
		_, next, err := engine.Apply(r.state, engine.Command{Type: engine.CmdLeave, PlayerID: p})
		if err != nil {
			return
		}
		r.state = next
		delete(r.conns, p)
		if len(r.state.Players) == 0 {
			r.close(nil)
		}

	case engine.StatusFilling, engine.StatusPlaying:
		if !msg.Abrupt {
			r.forfeit(p)
			return
		}
		delete(r.conns, p)
		r.graceTimers[p].Cancel()
		r.graceTimers[p] = r.arm(r.cfg.GracePeriod, func(h *timer.Handle) Msg {
			return graceExpired{playerID: p, handle: h}
		})
		r.log.Info("player disconnected, grace period started",
			zap.String("player", p), zap.Duration("grace", r.cfg.GracePeriod))
		r.sendTo(engine.Opponent(r.state, p), types.Message(types.EvtOpponentLeft, nil))
	}
}

func (r *Room) handleGraceExpired(msg graceExpired) {
	if r.graceTimers[msg.playerID] != msg.handle {
		return
	}
	delete(r.graceTimers, msg.playerID)

	// Reconnection may have lost the race with the timer; a present player
	// does not forfeit.
	if _, back := r.conns[msg.playerID]; back {
		return
	}
	r.forfeit(msg.playerID)
}

func (r *Room) forfeit(playerID string) {
	_, next, err := engine.Apply(r.state, engine.Command{Type: engine.CmdForfeit, PlayerID: playerID})
	if err != nil {
		r.log.Debug("forfeit ignored", zap.String("player", playerID), zap.Error(err))
		return
	}
	r.state = next
	r.log.Warn("player forfeited", zap.String("player", playerID), zap.String("winner", r.state.Winner))
	r.sendTo(r.state.Winner, types.Message(types.EvtGameOver, types.GameOver{
		Winner: r.state.Winner,
		Reason: r.state.Reason,
	}))
	r.close(r.result())
}
