// Package console runs the interactive prompt loop of a local game. All
// input and output goes through injected reader/writer pairs so a test can
// script a whole session.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mhracek/sweeper/render"
	"github.com/mhracek/sweeper/sweeper"
)

// ErrInputClosed is returned when the input stream ends before the game does.
var ErrInputClosed = errors.New("input closed")

// parsePair reads exactly two non-negative integers from a line.
func parsePair(line string) (int, int, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, false
	}
	first, err := strconv.Atoi(fields[0])
	if err != nil || first < 0 {
		return 0, 0, false
	}
	second, err := strconv.Atoi(fields[1])
	if err != nil || second < 0 {
		return 0, 0, false
	}
	return first, second, true
}

// PromptParams asks for board size and mine count until it gets a pair that
// makes a valid board. Malformed or out-of-range input re-prompts and never
// aborts.
func PromptParams(r io.Reader, w io.Writer) (size, mines int, err error) {
	scanner := bufio.NewScanner(r)
	fmt.Fprintln(w, "Enter board size and number of mines, eg \"10 10\":")
	for scanner.Scan() {
		size, mines, ok := parsePair(scanner.Text())
		if ok && size > 0 && mines <= size*size {
			return size, mines, nil
		}
		fmt.Fprintln(w, "Please enter valid board size and number of mines.")
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, ErrInputClosed
}

// Game couples a board with the streams and renderer of one console session.
type Game struct {
	Board  *sweeper.Board
	In     io.Reader
	Out    io.Writer
	Render func(io.Writer, render.BoardView)
}

// Run plays the game to completion: render, prompt for "x y", reveal,
// repeat. Recoverable board errors re-prompt; the loop ends on a terminal
// status or when input runs out.
func (g *Game) Run() error {
	draw := g.Render
	if draw == nil {
		draw = render.Boxed
	}
	draw(g.Out, g.Board)
	scanner := bufio.NewScanner(g.In)
	for g.Board.Status() == sweeper.InProgress {
		fmt.Fprintln(g.Out, "Enter x and y, separated by space, eg \"1 3\":")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return ErrInputClosed
		}
		x, y, ok := parsePair(scanner.Text())
		if !ok {
			fmt.Fprintln(g.Out, "Please enter two valid indices, separated by space.")
			continue
		}
		if _, err := g.Board.Reveal(x, y); err != nil {
			var moveErr *sweeper.InvalidMoveError
			switch {
			case errors.As(err, &moveErr):
				fmt.Fprintln(g.Out, "Invalid entries.")
			case errors.Is(err, sweeper.ErrAlreadyRevealed):
				fmt.Fprintln(g.Out, "Cell already visited.")
			default:
				return err
			}
			continue
		}
		draw(g.Out, g.Board)
	}
	switch g.Board.Status() {
	case sweeper.Won:
		fmt.Fprintln(g.Out, "You won!")
	case sweeper.Lost:
		fmt.Fprintln(g.Out, "You lost the game.")
	}
	return nil
}
