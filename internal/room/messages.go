package room

import (
	"time"

	"github.com/DoyleJ11/number-duel-backend/internal/engine"
	"github.com/DoyleJ11/number-duel-backend/internal/timer"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
)

type Msg interface{ isRoomMsg() }

// Conn is the outbound half of one player connection.
type Conn struct {
	ID     string
	Outbox chan<- types.ServerMessage
}

// Join admits a new player or, when PlayerID is already seated, reconnects it.
type Join struct {
	PlayerID string
	Password *string
	Conn     Conn
	Reply    chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	Reconnected bool
	Err         error
}

type SubmitBoard struct {
	PlayerID string
	Board    engine.Board
}

func (SubmitBoard) isRoomMsg() {}

type MakeMove struct {
	PlayerID string
	Number   int
}

func (MakeMove) isRoomMsg() {}

// Leave is an explicit leave, or a transport disconnect when Abrupt is set.
// An abrupt leave only counts if ConnID is the player's current connection.
type Leave struct {
	PlayerID string
	ConnID   string
	Abrupt   bool
	Done     chan struct{} // closed once handled; may be nil
}

func (Leave) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type fillExpired struct{ handle *timer.Handle }

func (fillExpired) isRoomMsg() {}

type graceExpired struct {
	playerID string
	handle   *timer.Handle
}

func (graceExpired) isRoomMsg() {}

// Summary is what the registry needs to list a room and find its players.
type Summary struct {
	ID          string
	Players     []string
	Status      engine.Status
	HasPassword bool
}

// Result describes a game that reached finished.
type Result struct {
	RoomID     string
	Players    []string
	Winner     string
	Reason     string
	Crossed    []int
	Scores     map[string]int
	FinishedAt time.Time
}

// View is a race-free copy of the room state.
type View struct {
	Status        engine.Status
	Players       []string
	Boards        map[string]engine.Board
	Crossed       []int
	Turn          string
	Scores        map[string]int
	FillRemaining time.Duration
	Connected     []string
	Disconnected  []string // players inside their grace window
}
