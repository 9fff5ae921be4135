// Package client is the console client of the game server: it mirrors the
// board from cell updates and turns typed coordinates into reveal commands.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mhracek/sweeper/protocol"
	"github.com/mhracek/sweeper/render"
)

var (
	ErrOutOfView       = errors.New("cell outside the board view")
	ErrServerTimeout   = errors.New("timed out waiting for server response")
	ErrSessionFinished = errors.New("connection closed")
)

const responseTimeout = 5 * time.Second

// lockedWriter serializes output: the read loop and the play loop both
// write to the same terminal.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type Client struct {
	controller *protocol.ConnectionController
	out        io.Writer

	view *View

	started   chan protocol.GameParams
	ended     chan protocol.GameEndType
	authed    chan *protocol.AuthResponse
	registers chan bool
	readErr   chan error
}

// Connect dials the server and starts reading its messages. Output meant
// for the player is written to out.
func Connect(host string, port uint16, out io.Writer) (*Client, error) {
	controller := protocol.CreateConnectionController()
	if err := controller.Connect(host, port); err != nil {
		return nil, err
	}
	client := &Client{
		controller: controller,
		out:        &lockedWriter{w: out},
		started:    make(chan protocol.GameParams, 1),
		ended:      make(chan protocol.GameEndType, 1),
		authed:     make(chan *protocol.AuthResponse, 1),
		registers:  make(chan bool, 1),
		readErr:    make(chan error, 1),
	}
	client.registerHandlers()
	go func() {
		client.readErr <- client.controller.ReadLoop()
	}()
	return client, nil
}

func (c *Client) registerHandlers() {
	c.controller.RegisterHandler(protocol.StartGame, func(data []byte) error {
		params, err := protocol.DecodeGameStart(data)
		if err != nil {
			return err
		}
		c.view = NewView(params.Size)
		c.started <- *params
		return nil
	})
	c.controller.RegisterHandler(protocol.CellUpdate, func(data []byte) error {
		cells, err := protocol.DecodeCellUpdates(data)
		if err != nil {
			return err
		}
		if c.view == nil {
			return fmt.Errorf("cell update before game start")
		}
		c.view.Apply(cells)
		render.Grid(c.out, c.view)
		return nil
	})
	c.controller.RegisterHandler(protocol.GameEnd, func(data []byte) error {
		endType, err := protocol.DecodeGameEnd(data)
		if err != nil {
			return err
		}
		c.ended <- endType
		return nil
	})
	c.controller.RegisterHandler(protocol.TextMessage, func(data []byte) error {
		message, err := protocol.DecodeTextMessage(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, message)
		return nil
	})
	c.controller.RegisterHandler(protocol.RegisterPlayerResponse, func(data []byte) error {
		success, err := protocol.DecodeRegisterPlayerResponse(data)
		if err != nil {
			return err
		}
		c.registers <- success
		return nil
	})
	c.controller.RegisterHandler(protocol.AuthResponseMessage, func(data []byte) error {
		response, err := protocol.DecodeAuthResponse(data)
		if err != nil {
			return err
		}
		c.authed <- response
		return nil
	})
}

// Register creates an account on the server.
func (c *Client) Register(name, password string) (bool, error) {
	message, err := protocol.EncodeRegisterPlayerRequest(protocol.AuthPlayerParams{Name: name, Password: password})
	if err != nil {
		return false, err
	}
	if err := c.controller.SendMessage(message); err != nil {
		return false, err
	}
	select {
	case success := <-c.registers:
		return success, nil
	case err := <-c.readErr:
		return false, err
	case <-time.After(responseTimeout):
		return false, ErrServerTimeout
	}
}

// Login authenticates the connection.
func (c *Client) Login(name, password string) (*protocol.AuthResponse, error) {
	message, err := protocol.EncodeAuthRequest(protocol.AuthPlayerParams{Name: name, Password: password})
	if err != nil {
		return nil, err
	}
	if err := c.controller.SendMessage(message); err != nil {
		return nil, err
	}
	select {
	case response := <-c.authed:
		return response, nil
	case err := <-c.readErr:
		return nil, err
	case <-time.After(responseTimeout):
		return nil, ErrServerTimeout
	}
}

// Resume authenticates with a session token obtained from an earlier
// login, so reconnecting does not need the password again.
func (c *Client) Resume(token []byte) (*protocol.AuthResponse, error) {
	message, err := protocol.EncodeTokenAuth(token)
	if err != nil {
		return nil, err
	}
	if err := c.controller.SendMessage(message); err != nil {
		return nil, err
	}
	select {
	case response := <-c.authed:
		return response, nil
	case err := <-c.readErr:
		return nil, err
	case <-time.After(responseTimeout):
		return nil, ErrServerTimeout
	}
}

// Play runs one game: request a board, then forward "x y" lines from in
// until the server reports the game over.
func (c *Client) Play(params protocol.GameParams, in io.Reader) (protocol.GameEndType, error) {
	message, err := protocol.EncodeGameStart(params)
	if err != nil {
		return 0, err
	}
	if err := c.controller.SendMessage(message); err != nil {
		return 0, err
	}
	select {
	case started := <-c.started:
		fmt.Fprintf(c.out, "Game started: %dx%d board, %d mines\n", started.Size, started.Size, started.Mines)
	case err := <-c.readErr:
		return 0, err
	case <-time.After(responseTimeout):
		return 0, ErrServerTimeout
	}
	render.Grid(c.out, c.view)

	// One goroutine pumps input lines for the whole game. When Play
	// returns through the game-end path the pump exits as soon as its
	// pending Scan yields, instead of leaking a reader per prompt.
	lineCh := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lineCh)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lineCh <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	for {
		fmt.Fprintln(c.out, "Enter x and y, separated by space, eg \"1 3\":")
		select {
		case endType := <-c.ended:
			return endType, nil
		case err := <-c.readErr:
			return 0, err
		case line, ok := <-lineCh:
			if !ok {
				// Input is done; give a move already in flight a chance
				// to finish the game before giving up.
				select {
				case endType := <-c.ended:
					return endType, nil
				case err := <-c.readErr:
					return 0, err
				case <-time.After(responseTimeout):
					return 0, ErrSessionFinished
				}
			}
			x, y, valid := parsePair(line)
			if !valid {
				fmt.Fprintln(c.out, "Please enter two valid indices, separated by space.")
				continue
			}
			message, err := protocol.EncodeReveal(x, y)
			if err != nil {
				return 0, err
			}
			if err := c.controller.SendMessage(message); err != nil {
				return 0, err
			}
			// Give the server a moment so the board redraw lands before
			// the next prompt.
			select {
			case endType := <-c.ended:
				return endType, nil
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

// Close drops the connection, which ends the session server-side.
func (c *Client) Close() error {
	return c.controller.Close()
}

func parsePair(line string) (int, int, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, false
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil || x < 0 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil || y < 0 {
		return 0, 0, false
	}
	return x, y, true
}
