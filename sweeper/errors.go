package sweeper

import "errors"

var (
	// ErrGameOver is returned by Reveal once the game reached Won or Lost.
	ErrGameOver = errors.New("game is already over")
	// ErrAlreadyRevealed is returned by Reveal for a cell that is not hidden.
	ErrAlreadyRevealed = errors.New("cell is already revealed")
)
