package engine

import "math/rand/v2"

// NewState returns a waiting room state holding only its creator.
func NewState(creatorID string) State {
	return State{
		Status:  StatusWaiting,
		Players: []string{creatorID},
		Boards:  map[string]Board{},
		Crossed: []int{},
		Scores:  map[string]int{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Opponent returns the other player in s, or "" if there is none.
func Opponent(s State, playerID string) string {
	return opponentOf(s.Players, playerID)
}

var chooseFirstTurn = func(players []string) string {
	return players[rand.IntN(len(players))]
}
