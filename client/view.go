package client

import (
	"sync"

	"github.com/mhracek/sweeper/sweeper"
)

// View mirrors the server-side board from cell updates. It satisfies
// render.BoardView so the console renderer can draw it directly.
type View struct {
	mu    sync.Mutex
	size  int
	cells [][]sweeper.Display
}

func NewView(size int) *View {
	cells := make([][]sweeper.Display, size)
	for i := range cells {
		cells[i] = make([]sweeper.Display, size)
		for j := range cells[i] {
			cells[i][j] = sweeper.Hidden
		}
	}
	return &View{size: size, cells: cells}
}

func (v *View) Size() int {
	return v.size
}

func (v *View) CellDisplay(x, y int) (sweeper.Display, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if x < 0 || x >= v.size || y < 0 || y >= v.size {
		return 0, ErrOutOfView
	}
	return v.cells[x][y], nil
}

// Apply folds a batch of cell updates into the view. Updates outside the
// grid are dropped rather than trusted.
func (v *View) Apply(cells []sweeper.Cell) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, cell := range cells {
		if cell.X < 0 || cell.X >= v.size || cell.Y < 0 || cell.Y >= v.size {
			continue
		}
		v.cells[cell.X][cell.Y] = cell.Value
	}
}
