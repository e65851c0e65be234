// Package session routes one connection's client events to the registry and
// to rooms.
package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
	"github.com/DoyleJ11/number-duel-backend/internal/hub"
	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var ErrIdentityMismatch = errors.New("userId does not match connection")

var validate = validator.New()

type Session struct {
	playerID string
	conn     room.Conn
	hub      *hub.Hub
	log      *zap.Logger
}

func New(playerID string, conn room.Conn, h *hub.Hub, log *zap.Logger) *Session {
	return &Session{
		playerID: playerID,
		conn:     conn,
		hub:      h,
		log:      log.Named("session").With(zap.String("player", playerID), zap.String("conn", conn.ID)),
	}
}

// Open subscribes the connection to room listing updates.
func (s *Session) Open() {
	s.hub.Subscribe(s.conn)
}

// Close treats the end of the connection as an abrupt leave of every room the
// player sits in. Rooms ignore it if the player has since reconnected elsewhere.
func (s *Session) Close(ctx context.Context) {
	s.hub.Unsubscribe(s.conn.ID)
	rooms, err := s.hub.RoomsOf(ctx, s.playerID)
	if err != nil {
		return
	}
	for _, rm := range rooms {
		_ = rm.Leave(ctx, s.playerID, s.conn.ID, true)
	}
}

func (s *Session) Handle(ctx context.Context, msg types.ClientMessage) {
	switch msg.Event {
	case types.EvtGetRooms:
		s.getRooms(ctx)
	case types.EvtCreateRoom:
		s.createRoom(ctx, msg.Data)
	case types.EvtJoinRoom:
		s.joinRoom(ctx, msg.Data)
	case types.EvtSubmitBoard:
		s.submitBoard(ctx, msg.Data)
	case types.EvtMakeMove:
		s.makeMove(ctx, msg.Data)
	case types.EvtLeaveRoom:
		s.leaveRoom(ctx, msg.Data)
	default:
		s.reply(types.Error("unknown event"))
	}
}

func (s *Session) getRooms(ctx context.Context) {
	list, err := s.hub.List(ctx)
	if err != nil {
		s.log.Warn("listing rooms failed", zap.Error(err))
		return
	}
	s.reply(types.Message(types.EvtRoomsList, list))
}

func (s *Session) createRoom(ctx context.Context, data json.RawMessage) {
	var req types.CreateRoomRequest
	if err := decode(data, &req, true); err != nil {
		s.reply(types.Error("invalid createRoom payload"))
		return
	}
	if !s.owns(req.UserID) {
		s.reply(types.Error(errorText(ErrIdentityMismatch)))
		return
	}

	s.vacate(ctx, "")
	rm, err := s.hub.Create(ctx, s.playerID, req.Password, s.conn)
	if err != nil {
		s.log.Error("create room failed", zap.Error(err))
		s.reply(types.Error("could not create room"))
		return
	}
	s.reply(types.Message(types.EvtRoomCreated, types.RoomCreated{RoomID: rm.ID()}))
}

func (s *Session) joinRoom(ctx context.Context, data json.RawMessage) {
	var req types.JoinRoomRequest
	if err := decode(data, &req, false); err != nil {
		s.reply(types.Error("invalid joinRoom payload"))
		return
	}
	if !s.owns(req.UserID) {
		s.reply(types.Error(errorText(ErrIdentityMismatch)))
		return
	}

	rm, err := s.hub.Get(ctx, req.RoomID)
	if err != nil {
		s.reply(types.Error(errorText(err)))
		return
	}
	reconnected, err := rm.Join(ctx, s.playerID, req.Password, s.conn)
	if err != nil {
		s.log.Debug("join rejected", zap.String("room", req.RoomID), zap.Error(err))
		s.reply(types.Error(errorText(err)))
		return
	}
	if !reconnected {
		s.vacate(ctx, rm.ID())
	}
}

func (s *Session) submitBoard(ctx context.Context, data json.RawMessage) {
	var req types.SubmitBoardRequest
	if err := decode(data, &req, false); err != nil || !s.owns(req.UserID) {
		s.log.Debug("submitBoard dropped", zap.Error(err))
		return
	}
	if rm := s.room(ctx, req.RoomID); rm != nil {
		rm.Send(room.SubmitBoard{PlayerID: s.playerID, Board: req.Board})
	}
}

func (s *Session) makeMove(ctx context.Context, data json.RawMessage) {
	var req types.MakeMoveRequest
	if err := decode(data, &req, false); err != nil || !s.owns(req.UserID) {
		s.log.Debug("makeMove dropped", zap.Error(err))
		return
	}
	if rm := s.room(ctx, req.RoomID); rm != nil {
		rm.Send(room.MakeMove{PlayerID: s.playerID, Number: req.Number})
	}
}

func (s *Session) leaveRoom(ctx context.Context, data json.RawMessage) {
	var req types.LeaveRoomRequest
	if err := decode(data, &req, false); err != nil {
		s.reply(types.Error("invalid leaveRoom payload"))
		return
	}
	if !s.owns(req.UserID) {
		s.reply(types.Error(errorText(ErrIdentityMismatch)))
		return
	}
	if rm := s.room(ctx, req.RoomID); rm != nil {
		_ = rm.Leave(ctx, s.playerID, s.conn.ID, false)
	}
}

// vacate makes the player leave every room except keep, as an explicit leave.
func (s *Session) vacate(ctx context.Context, keep string) {
	rooms, err := s.hub.RoomsOf(ctx, s.playerID)
	if err != nil {
		return
	}
	for _, rm := range rooms {
		if rm.ID() == keep {
			continue
		}
		s.log.Info("leaving previous room", zap.String("room", rm.ID()))
		_ = rm.Leave(ctx, s.playerID, s.conn.ID, false)
	}
}

func (s *Session) room(ctx context.Context, id string) *room.Room {
	rm, err := s.hub.Get(ctx, id)
	if err != nil {
		return nil
	}
	return rm
}

// owns reports whether a payload userId, if any, names this connection's player.
func (s *Session) owns(userID string) bool {
	return userID == "" || userID == s.playerID
}

func (s *Session) reply(msg types.ServerMessage) {
	select {
	case s.conn.Outbox <- msg:
	default:
		s.log.Warn("outbox full, dropping reply", zap.String("event", msg.Event))
	}
}

func decode(data json.RawMessage, v any, optional bool) error {
	if len(data) == 0 || string(data) == "null" {
		if optional {
			return nil
		}
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, room.ErrIncorrectPassword):
		return "Incorrect password"
	case errors.Is(err, engine.ErrRoomFull):
		return "Room full or game in progress"
	case errors.Is(err, room.ErrRoomGone):
		return "Room not found"
	case errors.Is(err, ErrIdentityMismatch):
		return "User mismatch"
	default:
		return "Request failed"
	}
}
