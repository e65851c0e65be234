package engine

import (
	"errors"
	"maps"
	"slices"
)

var ErrRoomFull = errors.New("room full or game in progress")
var ErrAlreadyJoined = errors.New("player already in room")
var ErrNotInRoom = errors.New("player not in room")
var ErrWrongPhase = errors.New("action not allowed in current phase")
var ErrWrongTurn = errors.New("not your turn")
var ErrNumberOutOfRange = errors.New("number out of range")
var ErrNumberAlreadyCrossed = errors.New("number already crossed")
var ErrInvalidBoard = errors.New("invalid board submission")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	MaxPlayers = 2
	// WinThreshold is the number of completed lines (out of 12) that wins.
	WinThreshold = 5
)

// ReasonOpponentLeft is the outcome reason of a forfeit.
const ReasonOpponentLeft = "opponent_left"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusFilling  Status = "filling"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type State struct {
	Status  Status
	Players []string // join order; earlier players win simultaneous threshold crossings
	Boards  map[string]Board
	Crossed []int
	Turn    string
	Scores  map[string]int
	Winner  string
	Reason  string
}

type CommandType string

const (
	CmdJoin        CommandType = "Join"
	CmdLeave       CommandType = "Leave"
	CmdSubmitBoard CommandType = "SubmitBoard"
	CmdMakeMove    CommandType = "MakeMove"
	CmdForfeit     CommandType = "Forfeit"
)

/*
	CmdJoin        -> EvtPlayerJoined -> EvtFillingStarted (second player)
	CmdLeave       -> EvtPlayerLeft (waiting/finished only)
	CmdSubmitBoard -> EvtBoardSubmitted -> EvtGameStarted (both boards in)
	CmdMakeMove    -> EvtNumberCrossed -> EvtGameWon (first player in join order at >= 5 lines)
	CmdForfeit     -> EvtGameWon{Reason: opponent_left}
*/

type Command struct {
	Type     CommandType
	PlayerID string
	Board    Board
	Number   int
}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtPlayerLeft     EventType = "PlayerLeft"
	EvtFillingStarted EventType = "FillingStarted"
	EvtBoardSubmitted EventType = "BoardSubmitted"
	EvtGameStarted    EventType = "GameStarted"
	EvtNumberCrossed  EventType = "NumberCrossed"
	EvtGameWon        EventType = "GameWon"
)

type Event struct {
	Type     EventType
	PlayerID string
	Number   int
	Reason   string
}

// Apply validates cmd against s and returns the resulting events and state.
// The input state is never modified; on error it is returned unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return join(s, cmd)
	case CmdLeave:
		return leave(s, cmd)
	case CmdSubmitBoard:
		return submitBoard(s, cmd)
	case CmdMakeMove:
		return makeMove(s, cmd)
	case CmdForfeit:
		return forfeit(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func join(s State, cmd Command) ([]Event, State, error) {
	if slices.Contains(s.Players, cmd.PlayerID) {
		return nil, s, ErrAlreadyJoined
	}
	if len(s.Players) >= MaxPlayers || s.Status != StatusWaiting {
		return nil, s, ErrRoomFull
	}

	newState := cloneState(s)
	newState.Players = append(newState.Players, cmd.PlayerID)
	events := []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}

	if len(newState.Players) == MaxPlayers {
		newState.Status = StatusFilling
		events = append(events, Event{Type: EvtFillingStarted})
	}
	return events, newState, nil
}

func leave(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusWaiting && s.Status != StatusFinished {
		return nil, s, ErrWrongPhase
	}
	if !slices.Contains(s.Players, cmd.PlayerID) {
		return nil, s, ErrNotInRoom
	}

	newState := cloneState(s)
	newState.Players = slices.DeleteFunc(newState.Players, func(p string) bool { return p == cmd.PlayerID })
	delete(newState.Boards, cmd.PlayerID)
	delete(newState.Scores, cmd.PlayerID)
	return []Event{{Type: EvtPlayerLeft, PlayerID: cmd.PlayerID}}, newState, nil
}

func submitBoard(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusFilling {
		return nil, s, ErrWrongPhase
	}
	if !slices.Contains(s.Players, cmd.PlayerID) {
		return nil, s, ErrNotInRoom
	}
	if err := ValidateBoard(cmd.Board); err != nil {
		return nil, s, err
	}

	// Resubmission before the opponent submits simply replaces the board.
	newState := cloneState(s)
	newState.Boards[cmd.PlayerID] = cmd.Board
	newState.Scores[cmd.PlayerID] = 0
	events := []Event{{Type: EvtBoardSubmitted, PlayerID: cmd.PlayerID}}

	if len(newState.Boards) == MaxPlayers {
		newState.Status = StatusPlaying
		newState.Turn = chooseFirstTurn(newState.Players)
		events = append(events, Event{Type: EvtGameStarted, PlayerID: newState.Turn})
	}
	return events, newState, nil
}

func makeMove(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusPlaying {
		return nil, s, ErrWrongPhase
	}
	if s.Turn != cmd.PlayerID {
		return nil, s, ErrWrongTurn
	}
	if cmd.Number < 1 || cmd.Number > MaxNumber {
		return nil, s, ErrNumberOutOfRange
	}
	if slices.Contains(s.Crossed, cmd.Number) {
		return nil, s, ErrNumberAlreadyCrossed
	}

	newState := cloneState(s)
	newState.Crossed = append(newState.Crossed, cmd.Number)

	// Every score is recomputed before the winner scan, which walks players
	// in join order: on a simultaneous crossing the earlier joiner wins,
	// whoever made the move.
	for _, p := range newState.Players {
		newState.Scores[p] = Score(newState.Boards[p], newState.Crossed)
	}
	winner := ""
	for _, p := range newState.Players {
		if newState.Scores[p] >= WinThreshold {
			winner = p
			break
		}
	}

	newState.Turn = opponentOf(newState.Players, cmd.PlayerID)
	events := []Event{{Type: EvtNumberCrossed, PlayerID: cmd.PlayerID, Number: cmd.Number}}

	if winner != "" {
		newState.Status = StatusFinished
		newState.Winner = winner
		events = append(events, Event{Type: EvtGameWon, PlayerID: winner})
	}
	return events, newState, nil
}

func forfeit(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusFilling && s.Status != StatusPlaying {
		return nil, s, ErrWrongPhase
	}
	if !slices.Contains(s.Players, cmd.PlayerID) {
		return nil, s, ErrNotInRoom
	}

	newState := cloneState(s)
	newState.Status = StatusFinished
	newState.Winner = opponentOf(newState.Players, cmd.PlayerID)
	newState.Reason = ReasonOpponentLeft
	return []Event{{Type: EvtGameWon, PlayerID: newState.Winner, Reason: ReasonOpponentLeft}}, newState, nil
}

func opponentOf(players []string, id string) string {
	for _, p := range players {
		if p != id {
			return p
		}
	}
	return ""
}

func cloneState(s State) State {
	out := s
	out.Players = slices.Clone(s.Players)
	out.Crossed = slices.Clone(s.Crossed)
	out.Boards = maps.Clone(s.Boards)
	out.Scores = maps.Clone(s.Scores)
	if out.Boards == nil {
		out.Boards = map[string]Board{}
	}
	if out.Scores == nil {
		out.Scores = map[string]int{}
	}
	if out.Crossed == nil {
		out.Crossed = []int{}
	}
	return out
}
