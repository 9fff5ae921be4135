package console_test

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/mhracek/sweeper/console"
	"github.com/mhracek/sweeper/sweeper"
)

func TestPromptParamsAcceptsValidPair(t *testing.T) {
	var out bytes.Buffer
	size, mines, err := console.PromptParams(strings.NewReader("10 10\n"), &out)
	if err != nil {
		t.Fatalf("PromptParams failed: %v", err)
	}
	if size != 10 || mines != 10 {
		t.Errorf("PromptParams = (%d, %d), want (10, 10)", size, mines)
	}
}

func TestPromptParamsRepromptsOnBadInput(t *testing.T) {
	var out bytes.Buffer
	input := "ten mines\n5\n-3 2\n0 0\n3 10\n3 2\n"
	size, mines, err := console.PromptParams(strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("PromptParams failed: %v", err)
	}
	if size != 3 || mines != 2 {
		t.Errorf("PromptParams = (%d, %d), want (3, 2)", size, mines)
	}
	if got := strings.Count(out.String(), "Please enter valid board size"); got != 5 {
		t.Errorf("Expected 5 re-prompts, got %d:\n%s", got, out.String())
	}
}

func TestPromptParamsInputClosed(t *testing.T) {
	var out bytes.Buffer
	_, _, err := console.PromptParams(strings.NewReader(""), &out)
	if !errors.Is(err, console.ErrInputClosed) {
		t.Fatalf("PromptParams on empty input = %v, want ErrInputClosed", err)
	}
}

func newGame(t *testing.T, size, mines int, input string) (*console.Game, *bytes.Buffer) {
	t.Helper()
	board, err := sweeper.CreateBoard(size, mines, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	var out bytes.Buffer
	return &console.Game{Board: board, In: strings.NewReader(input), Out: &out}, &out
}

func TestRunWinsSingleCell(t *testing.T) {
	game, out := newGame(t, 1, 0, "0 0\n")
	if err := game.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if game.Board.Status() != sweeper.Won {
		t.Fatalf("Status = %v, want Won", game.Board.Status())
	}
	if !strings.Contains(out.String(), "You won!") {
		t.Errorf("Missing win message:\n%s", out.String())
	}
}

func TestRunRepromptsOnMalformedInput(t *testing.T) {
	game, out := newGame(t, 1, 0, "zero zero\n1 2 3\n0\n0 0\n")
	if err := game.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.Count(out.String(), "Please enter two valid indices"); got != 3 {
		t.Errorf("Expected 3 re-prompts, got %d:\n%s", got, out.String())
	}
	if game.Board.Status() != sweeper.Won {
		t.Errorf("Status = %v, want Won", game.Board.Status())
	}
}

func TestRunStopsOnTerminalStatus(t *testing.T) {
	game, out := newGame(t, 2, 0, "1 1\n1 1\n5 5\n0 0\n")
	if err := game.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	text := out.String()
	// 1 1 cascades the whole empty board, so the second and third moves
	// never run: the game is already won after the first reveal.
	if game.Board.Status() != sweeper.Won {
		t.Errorf("Status = %v, want Won", game.Board.Status())
	}
	if !strings.Contains(text, "You won!") {
		t.Errorf("Missing win message:\n%s", text)
	}
}

func TestRunLossMessage(t *testing.T) {
	game, out := newGame(t, 2, 4, "0 0\n")
	if err := game.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if game.Board.Status() != sweeper.Lost {
		t.Fatalf("Status = %v, want Lost", game.Board.Status())
	}
	if !strings.Contains(out.String(), "You lost the game.") {
		t.Errorf("Missing loss message:\n%s", out.String())
	}
}

func TestRunAlreadyRevealedAndOutOfBounds(t *testing.T) {
	board, err := sweeper.CreateBoard(6, 8, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	// Find a safe numbered cell so the reveal does not end the game.
	var sx, sy int
	found := false
	for x := 0; x < 6 && !found; x++ {
		for y := 0; y < 6 && !found; y++ {
			mine, _ := board.MineAt(x, y)
			if mine {
				continue
			}
			adjacent := 0
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if m, err := board.MineAt(x+dx, y+dy); err == nil && m && !(dx == 0 && dy == 0) {
						adjacent++
					}
				}
			}
			if adjacent > 0 {
				sx, sy = x, y
				found = true
			}
		}
	}
	if !found {
		t.Fatal("No numbered safe cell on the board")
	}
	// Reveal the cell, repeat it, go out of bounds, then close the input.
	input := fmt.Sprintf("%d %d\n%d %d\n9 9\n", sx, sy, sx, sy)
	var buf bytes.Buffer
	mined := &console.Game{Board: board, In: strings.NewReader(input), Out: &buf}
	err = mined.Run()
	if !errors.Is(err, console.ErrInputClosed) {
		t.Fatalf("Run = %v, want ErrInputClosed", err)
	}
	if !strings.Contains(buf.String(), "Cell already visited.") {
		t.Errorf("Missing already-visited message:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Invalid entries.") {
		t.Errorf("Missing out-of-bounds message:\n%s", buf.String())
	}
}
