package engine

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

const (
	BoardSide  = 5
	BoardCells = BoardSide * BoardSide
	MaxNumber  = BoardCells
)

// Board is a row-major 5x5 grid. A zero cell is empty.
type Board [BoardCells]int

// MarshalJSON writes empty cells as null.
func (b Board) MarshalJSON() ([]byte, error) {
	cells := make([]*int, BoardCells)
	for i, n := range b {
		if n != 0 {
			v := n
			cells[i] = &v
		}
	}
	return json.Marshal(cells)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var cells []*int
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	if len(cells) != BoardCells {
		return fmt.Errorf("board has %d cells, want %d: %w", len(cells), BoardCells, ErrInvalidBoard)
	}
	var out Board
	for i, c := range cells {
		if c != nil {
			out[i] = *c
		}
	}
	*b = out
	return nil
}

// ValidateBoard checks that b is a permutation of 1..25.
func ValidateBoard(b Board) error {
	var seen [MaxNumber + 1]bool
	for i, n := range b {
		if n < 1 || n > MaxNumber {
			return fmt.Errorf("cell %d holds %d: %w", i, n, ErrInvalidBoard)
		}
		if seen[n] {
			return fmt.Errorf("number %d placed twice: %w", n, ErrInvalidBoard)
		}
		seen[n] = true
	}
	return nil
}

// AutoFill places the numbers missing from b into its remaining cells in
// uniformly random order. Cells holding a valid, not yet seen number are kept;
// empty, out of range and duplicate cells are overwritten.
func AutoFill(b Board) Board {
	var used [MaxNumber + 1]bool
	var keep [BoardCells]bool
	for i, n := range b {
		if n >= 1 && n <= MaxNumber && !used[n] {
			used[n] = true
			keep[i] = true
		}
	}

	remaining := make([]int, 0, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		if !used[n] {
			remaining = append(remaining, n)
		}
	}
	shuffle(remaining)

	out := b
	for i := range out {
		if keep[i] {
			continue
		}
		out[i], remaining = remaining[0], remaining[1:]
	}
	return out
}

var shuffle = func(nums []int) {
	rand.Shuffle(len(nums), func(i, j int) { nums[i], nums[j] = nums[j], nums[i] })
}
