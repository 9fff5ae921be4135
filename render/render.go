// Package render draws a board to a writer. It only reads the engine's
// query surface and never mutates game state.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mhracek/sweeper/sweeper"
)

// BoardView is the read-only surface a renderer needs. *sweeper.Board
// satisfies it, and so does a client-side mirror of the grid.
type BoardView interface {
	Size() int
	CellDisplay(x, y int) (sweeper.Display, error)
}

// Token is the textual convention for a single cell: empty for hidden,
// the decimal digit for a revealed count, "M" for a shown mine.
func Token(d sweeper.Display) string {
	if count, ok := d.Count(); ok {
		return strconv.Itoa(count)
	}
	if d == sweeper.Mine {
		return "M"
	}
	return ""
}

// Grid writes a compact one-character-per-cell grid with modulo-10
// row and column headers. Hidden cells print as '#'.
func Grid(w io.Writer, board BoardView) {
	size := board.Size()
	fmt.Fprint(w, "X")
	for x := 0; x < size; x++ {
		fmt.Fprint(w, x%10)
	}
	fmt.Fprintln(w)
	for y := 0; y < size; y++ {
		fmt.Fprint(w, y%10)
		for x := 0; x < size; x++ {
			display, err := board.CellDisplay(x, y)
			if err != nil {
				continue
			}
			token := Token(display)
			if token == "" {
				token = "#"
			}
			fmt.Fprint(w, token)
		}
		fmt.Fprintln(w)
	}
}

const (
	boxCellWidth  = 5
	boxLeftMargin = 3
)

// Boxed writes the full boxed board: a title, a spaced column header and
// one bordered row of cells per board row, with row numbers in the left
// margin.
func Boxed(w io.Writer, board BoardView) {
	size := board.Size()
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat(" ", boxCellWidth*size/2)+"MineSweeper")
	fmt.Fprintln(w)

	var header strings.Builder
	header.WriteString(strings.Repeat(" ", boxLeftMargin))
	for x := 0; x < size; x++ {
		label := strconv.Itoa(x)
		header.WriteString(strings.Repeat(" ", boxCellWidth-len(label)) + label)
	}
	fmt.Fprintln(w, header.String())
	fmt.Fprintln(w, strings.Repeat(" ", boxLeftMargin)+strings.Repeat("_", boxCellWidth*size))

	for x := 0; x < size; x++ {
		fmt.Fprintln(w, strings.Repeat(" ", boxLeftMargin)+strings.Repeat("|"+strings.Repeat(" ", boxCellWidth-1), size)+"|")

		label := strconv.Itoa(x)
		row := label + strings.Repeat(" ", boxLeftMargin-len(label))
		for y := 0; y < size; y++ {
			display, err := board.CellDisplay(x, y)
			token := ""
			if err == nil {
				token = Token(display)
			}
			row += "| " + token + strings.Repeat(" ", boxCellWidth-2-len(token))
		}
		fmt.Fprintln(w, row+"|")

		fmt.Fprintln(w, strings.Repeat(" ", boxLeftMargin)+strings.Repeat("|"+strings.Repeat("_", boxCellWidth-1), size)+"|")
	}
	fmt.Fprintln(w)
}
