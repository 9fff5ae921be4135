package sweeper

import (
	"fmt"
	"math/rand"
)

// Status of a game. Won and Lost are terminal: no further reveals
// are processed once either is reached.
type Status int

const (
	InProgress Status = iota
	Won
	Lost
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "InProgress"
	case Won:
		return "Won"
	case Lost:
		return "Lost"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Display is the per-cell value a renderer sees. Values 0x00-0x08 are
// adjacent mine counts. Encodes as a single byte on the wire.
type Display byte

const (
	Hidden Display = 0xFF
	Mine   Display = 0x10
)

// Count reports the adjacent mine count and whether the display holds one.
func (d Display) Count() (int, bool) {
	if d <= 8 {
		return int(d), true
	}
	return 0, false
}

// Cell is one changed cell reported by Reveal.
type Cell struct {
	X     int
	Y     int
	Value Display
}

// Board is a square minesweeper board. Mine positions are fixed at
// construction; Reveal is the only mutating operation.
type Board struct {
	size     int
	mines    int
	mineAt   [][]bool
	shown    [][]Display
	revealed int
	status   Status
}

type InvalidBoardParamsError struct {
	size  int
	mines int
}

func (e InvalidBoardParamsError) Error() string {
	switch {
	case e.size <= 0:
		return fmt.Sprintf("Cannot create a board with size: %d", e.size)
	case e.mines < 0:
		return fmt.Sprintf("Cannot create a board with negative amount of mines: %d", e.mines)
	case e.mines > e.size*e.size:
		return fmt.Sprintf("Not enough space for %d mines. (%d > %d * %d)", e.mines, e.mines, e.size, e.size)
	default:
		return "Cannot construct board: unknown error"
	}
}

type InvalidMoveError struct {
	size int
	x    int
	y    int
}

func (e InvalidMoveError) Error() string {
	return fmt.Sprintf("Move out of range - (%d, %d) - Board (%d, %d)", e.x, e.y, e.size, e.size)
}

// CreateBoard builds a size x size board with mines placed uniformly at
// random without replacement, drawn from rng so callers can pin layouts.
func CreateBoard(size, mines int, rng *rand.Rand) (*Board, error) {
	if size <= 0 || mines < 0 || mines > size*size {
		return nil, &InvalidBoardParamsError{size, mines}
	}
	mineAt := make([][]bool, size)
	shown := make([][]Display, size)
	for i := range mineAt {
		mineAt[i] = make([]bool, size)
		shown[i] = make([]Display, size)
		for j := range shown[i] {
			shown[i][j] = Hidden
		}
	}
	positions := make([]int, size*size)
	for i := range positions {
		positions[i] = i
	}
	rng.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	for _, position := range positions[:mines] {
		mineAt[position/size][position%size] = true
	}
	return &Board{
		size:   size,
		mines:  mines,
		mineAt: mineAt,
		shown:  shown,
		status: InProgress,
	}, nil
}

// CreateRandomBoard is CreateBoard seeded from crypto/rand.
func CreateRandomBoard(size, mines int) (*Board, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return CreateBoard(size, mines, rand.New(rand.NewSource(seed)))
}

func (b *Board) validIndex(x, y int) bool {
	return !(x < 0 || x >= b.size || y < 0 || y >= b.size)
}

func (b *Board) adjacentMines(x, y int) int {
	mines := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if b.validIndex(nx, ny) && b.mineAt[nx][ny] {
				mines++
			}
		}
	}
	return mines
}

// Reveal uncovers the cell at (x, y) and returns every cell whose display
// value changed. Revealing a zero-count cell cascades to its neighbours;
// revealing a mine loses the game and flips every mine on the board to the
// Mine display so the player sees where they all were.
//
// The cascade runs over an explicit work list rather than recursing, so
// large boards cannot blow the stack. A cell can be pushed by more than one
// neighbour before it is processed, hence the skip of already shown cells.
func (b *Board) Reveal(x, y int) ([]Cell, error) {
	if b.status != InProgress {
		return nil, ErrGameOver
	}
	if !b.validIndex(x, y) {
		return nil, &InvalidMoveError{b.size, x, y}
	}
	if b.shown[x][y] != Hidden {
		return nil, ErrAlreadyRevealed
	}
	var updated []Cell
	frontier := [][2]int{{x, y}}
	for len(frontier) > 0 {
		cx, cy := frontier[len(frontier)-1][0], frontier[len(frontier)-1][1]
		frontier = frontier[:len(frontier)-1]
		if b.mineAt[cx][cy] {
			b.status = Lost
			return b.revealAllMines(), nil
		}
		if b.shown[cx][cy] != Hidden {
			continue
		}
		count := b.adjacentMines(cx, cy)
		b.shown[cx][cy] = Display(count)
		b.revealed++
		updated = append(updated, Cell{cx, cy, Display(count)})
		if count != 0 {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := cx+dx, cy+dy
				if b.validIndex(nx, ny) && b.shown[nx][ny] == Hidden {
					frontier = append(frontier, [2]int{nx, ny})
				}
			}
		}
	}
	if b.revealed == b.size*b.size-b.mines {
		b.status = Won
	}
	return updated, nil
}

func (b *Board) revealAllMines() []Cell {
	var updated []Cell
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			if b.mineAt[x][y] {
				b.shown[x][y] = Mine
				updated = append(updated, Cell{x, y, Mine})
			}
		}
	}
	return updated
}

// Status reports the current game state.
func (b *Board) Status() Status {
	return b.status
}

// CellDisplay reports the display value of a single cell.
func (b *Board) CellDisplay(x, y int) (Display, error) {
	if !b.validIndex(x, y) {
		return 0, &InvalidMoveError{b.size, x, y}
	}
	return b.shown[x][y], nil
}

// MineAt reports whether a mine sits at (x, y). The layout never changes
// after construction, so exposing it keeps solvers and tests honest without
// handing out the grid itself.
func (b *Board) MineAt(x, y int) (bool, error) {
	if !b.validIndex(x, y) {
		return false, &InvalidMoveError{b.size, x, y}
	}
	return b.mineAt[x][y], nil
}

func (b *Board) Size() int {
	return b.size
}

func (b *Board) Mines() int {
	return b.mines
}

// RevealedCells counts the safe cells uncovered so far.
func (b *Board) RevealedCells() int {
	return b.revealed
}
