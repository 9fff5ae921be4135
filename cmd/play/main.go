package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mhracek/sweeper/console"
	"github.com/mhracek/sweeper/render"
	"github.com/mhracek/sweeper/sweeper"
)

func main() {
	size := flag.Int("size", 0, "board size (prompts when omitted)")
	mines := flag.Int("mines", -1, "number of mines (prompts when omitted)")
	flag.Parse()

	boardSize, mineCount := *size, *mines
	if boardSize <= 0 || mineCount < 0 {
		var err error
		boardSize, mineCount, err = console.PromptParams(os.Stdin, os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	board, err := sweeper.CreateRandomBoard(boardSize, mineCount)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	game := &console.Game{
		Board:  board,
		In:     os.Stdin,
		Out:    os.Stdout,
		Render: render.Boxed,
	}
	if err := game.Run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
