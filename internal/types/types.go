package types

import (
	"encoding/json"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
)

// Client -> server events.
const (
	EvtGetRooms    = "getRooms"
	EvtCreateRoom  = "createRoom"
	EvtJoinRoom    = "joinRoom"
	EvtSubmitBoard = "submitBoard"
	EvtMakeMove    = "makeMove"
	EvtLeaveRoom   = "leaveRoom"
)

// Server -> client events.
const (
	EvtRoomsList    = "roomsList"
	EvtRoomsUpdate  = "roomsUpdate"
	EvtRoomCreated  = "roomCreated"
	EvtPlayerJoined = "playerJoined"
	EvtStartFilling = "startFilling"
	EvtGameSync     = "gameSync"
	EvtGameStart    = "gameStart"
	EvtMoveMade     = "moveMade"
	EvtGameOver     = "gameOver"
	EvtOpponentLeft = "opponentLeft"
	EvtRoomClosed   = "roomClosed"
	EvtError        = "error"
)

type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type CreateRoomRequest struct {
	Password *string `json:"password,omitempty" validate:"omitempty,max=64"`
	UserID   string  `json:"userId,omitempty"`
}

type JoinRoomRequest struct {
	RoomID   string  `json:"roomId" validate:"required"`
	UserID   string  `json:"userId,omitempty"`
	Password *string `json:"password,omitempty"`
}

type SubmitBoardRequest struct {
	RoomID string       `json:"roomId" validate:"required"`
	Board  engine.Board `json:"board"`
	UserID string       `json:"userId,omitempty"`
}

type MakeMoveRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Number int    `json:"number"`
	UserID string `json:"userId,omitempty"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId,omitempty"`
}

type RoomSummary struct {
	ID           string        `json:"id"`
	PlayersCount int           `json:"playersCount"`
	Status       engine.Status `json:"status"`
	HasPassword  bool          `json:"hasPassword"`
}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type PlayerJoined struct {
	RoomID  string   `json:"roomId"`
	Players []string `json:"players"`
}

type StartFilling struct {
	Duration int `json:"duration"`
}

type GameSync struct {
	Status         engine.Status  `json:"status"`
	Board          engine.Board   `json:"board"`
	CrossedNumbers []int          `json:"crossedNumbers"`
	Turn           *string        `json:"turn"`
	Scores         map[string]int `json:"scores"`
	Timer          int            `json:"timer"`
}

type GameStart struct {
	Turn string `json:"turn"`
}

type MoveMade struct {
	Number         int            `json:"number"`
	CrossedNumbers []int          `json:"crossedNumbers"`
	Turn           string         `json:"turn"`
	Scores         map[string]int `json:"scores"`
}

type GameOver struct {
	Winner string `json:"winner"`
	Reason string `json:"reason,omitempty"`
}

func Message(event string, data any) ServerMessage {
	return ServerMessage{Event: event, Data: data}
}

func Error(msg string) ServerMessage {
	return ServerMessage{Event: EvtError, Data: msg}
}
