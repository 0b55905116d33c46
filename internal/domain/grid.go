package domain

// Position is one of the 25 bingo grid cells, "A1" through "E5".
type Position string

// WinLines is the number of completed lines that wins the round.
const WinLines = 5

var gridRows = [5]byte{'A', 'B', 'C', 'D', 'E'}

var diagonals = [2][5]Position{
	{"A1", "B2", "C3", "D4", "E5"},
	{"A5", "B4", "C3", "D2", "E1"},
}

func cell(row byte, col int) Position {
	return Position([]byte{row, byte('0' + col)})
}

// AllPositions returns the 25 canonical cells in row-major order.
func AllPositions() []Position {
	out := make([]Position, 0, 25)
	for _, row := range gridRows {
		for col := 1; col <= 5; col++ {
			out = append(out, cell(row, col))
		}
	}
	return out
}

// ValidPosition reports whether p names one of the 25 grid cells.
func ValidPosition(p Position) bool {
	if len(p) != 2 {
		return false
	}
	return p[0] >= 'A' && p[0] <= 'E' && p[1] >= '1' && p[1] <= '5'
}

// PositionSet builds a membership set from a slice of positions.
func PositionSet(positions []Position) map[Position]struct{} {
	set := make(map[Position]struct{}, len(positions))
	for _, p := range positions {
		set[p] = struct{}{}
	}
	return set
}

// FreePositions returns the canonical cells not present in solved, in
// row-major order.
func FreePositions(solved []Position) []Position {
	set := PositionSet(solved)
	free := make([]Position, 0, 25-len(set))
	for _, p := range AllPositions() {
		if _, ok := set[p]; !ok {
			free = append(free, p)
		}
	}
	return free
}

// CompletedLines counts the fully solved lines in the given cell set: 5 rows,
// 5 columns, and the 2 diagonals, so the result is always 0 through 12. It is
// recomputed from the entire set on every call; the count is never
// incremented in place.
func CompletedLines(solved []Position) int {
	set := PositionSet(solved)
	lines := 0

	for _, row := range gridRows {
		complete := true
		for col := 1; col <= 5; col++ {
			if _, ok := set[cell(row, col)]; !ok {
				complete = false
				break
			}
		}
		if complete {
			lines++
		}
	}

	for col := 1; col <= 5; col++ {
		complete := true
		for _, row := range gridRows {
			if _, ok := set[cell(row, col)]; !ok {
				complete = false
				break
			}
		}
		if complete {
			lines++
		}
	}

	for _, diag := range diagonals {
		complete := true
		for _, p := range diag {
			if _, ok := set[p]; !ok {
				complete = false
				break
			}
		}
		if complete {
			lines++
		}
	}

	return lines
}

// IsWin reports whether a line count reaches the win threshold.
func IsWin(lines int) bool { return lines >= WinLines }
