package engine

// Lines holds the cell indexes of every scoring line on a row-major 5x5 board:
// 5 rows, 5 columns, then the two diagonals.
var Lines = buildLines()

func buildLines() [][BoardSide]int {
	lines := make([][BoardSide]int, 0, 2*BoardSide+2)

	for r := 0; r < BoardSide; r++ {
		var row [BoardSide]int
		for c := 0; c < BoardSide; c++ {
			row[c] = r*BoardSide + c
		}
		lines = append(lines, row)
	}

	for c := 0; c < BoardSide; c++ {
		var col [BoardSide]int
		for r := 0; r < BoardSide; r++ {
			col[r] = r*BoardSide + c
		}
		lines = append(lines, col)
	}

	var diag, anti [BoardSide]int
	for i := 0; i < BoardSide; i++ {
		diag[i] = i*BoardSide + i
		anti[i] = i*BoardSide + (BoardSide - 1 - i)
	}
	return append(lines, diag, anti)
}

// Score counts the lines of b whose every number has been crossed.
func Score(b Board, crossed []int) int {
	set := make(map[int]struct{}, len(crossed))
	for _, n := range crossed {
		set[n] = struct{}{}
	}

	score := 0
	for _, line := range Lines {
		complete := true
		for _, idx := range line {
			if _, ok := set[b[idx]]; !ok {
				complete = false
				break
			}
		}
		if complete {
			score++
		}
	}
	return score
}
