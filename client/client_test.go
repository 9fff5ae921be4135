package client_test

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mhracek/sweeper/client"
	"github.com/mhracek/sweeper/players"
	"github.com/mhracek/sweeper/protocol"
	"github.com/mhracek/sweeper/server"
	"github.com/mhracek/sweeper/sweeper"
)

type memoryStore struct {
	mu     sync.Mutex
	byName map[string]*players.Player
	nextID uint32
}

func (s *memoryStore) CreatePlayer(username, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[username]; exists {
		return fmt.Errorf("player %q already exists", username)
	}
	s.byName[username] = &players.Player{ID: s.nextID, Name: username, PasswordHash: hash}
	s.nextID++
	return nil
}

func (s *memoryStore) FindPlayerByName(username string) (*players.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, exists := s.byName[username]
	if !exists {
		return nil, fmt.Errorf("player %q not found", username)
	}
	return player, nil
}

func (s *memoryStore) FindPlayerByID(id uint32) (*players.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, player := range s.byName {
		if player.ID == id {
			return player, nil
		}
	}
	return nil, fmt.Errorf("player %d not found", id)
}

func spawnGameServer(t *testing.T, accounts *players.Service) *server.Server {
	t.Helper()
	srv, err := server.Spawn(server.Config{}, zap.NewNop(), accounts, nil)
	if err != nil {
		t.Fatalf("Failed to spawn server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func connectClient(t *testing.T, srv *server.Server) (*client.Client, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	c, err := client.Connect("localhost", srv.Port, &out)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, &out
}

func spawnServerAndClient(t *testing.T, accounts *players.Service) (*client.Client, *bytes.Buffer) {
	t.Helper()
	return connectClient(t, spawnGameServer(t, accounts))
}

func TestPlayMineFreeGame(t *testing.T) {
	c, out := spawnServerAndClient(t, nil)
	endType, err := c.Play(protocol.GameParams{Size: 2, Mines: 0}, strings.NewReader("0 0\n"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if endType != protocol.Win {
		t.Fatalf("Game end = %d, want Win", endType)
	}
	if !strings.Contains(out.String(), "Game started: 2x2 board, 0 mines") {
		t.Errorf("Missing start banner:\n%s", out.String())
	}
}

func TestPlayFullMineBoardLoses(t *testing.T) {
	c, _ := spawnServerAndClient(t, nil)
	endType, err := c.Play(protocol.GameParams{Size: 2, Mines: 4}, strings.NewReader("0 0\n"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if endType != protocol.Loss {
		t.Fatalf("Game end = %d, want Loss", endType)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	store := &memoryStore{byName: make(map[string]*players.Player), nextID: 1}
	c, _ := spawnServerAndClient(t, &players.Service{Store: store})

	success, err := c.Register("john", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !success {
		t.Fatalf("Registration denied")
	}
	response, err := c.Login("john", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !response.Success || response.Name != "john" {
		t.Fatalf("Unexpected auth response: %+v", response)
	}
}

func TestResumeWithToken(t *testing.T) {
	store := &memoryStore{byName: make(map[string]*players.Player), nextID: 1}
	accounts := &players.Service{Store: store}
	srv := spawnGameServer(t, accounts)

	first, _ := connectClient(t, srv)
	if success, err := first.Register("john", "hunter22"); err != nil || !success {
		t.Fatalf("Register failed: %v (success %v)", err, success)
	}
	response, err := first.Login("john", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !response.Success || len(response.Token) == 0 {
		t.Fatalf("Login issued no token: %+v", response)
	}
	first.Close()

	second, _ := connectClient(t, srv)
	resumed, err := second.Resume(response.Token)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !resumed.Success || resumed.PlayerID != response.PlayerID || resumed.Name != "john" {
		t.Fatalf("Unexpected resume response: %+v", resumed)
	}
}

func TestPlayReturnsWhileInputStaysOpen(t *testing.T) {
	c, _ := spawnServerAndClient(t, nil)
	in, wr := io.Pipe()
	t.Cleanup(func() { wr.Close() })
	go fmt.Fprintln(wr, "0 0")

	// The losing move ends the game; Play must not wait for more input.
	endType, err := c.Play(protocol.GameParams{Size: 2, Mines: 4}, in)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if endType != protocol.Loss {
		t.Fatalf("Game end = %d, want Loss", endType)
	}
}

func TestViewApply(t *testing.T) {
	view := client.NewView(3)
	if display, err := view.CellDisplay(1, 1); err != nil || display != sweeper.Hidden {
		t.Fatalf("Fresh view cell = %v, %v; want Hidden", display, err)
	}
	view.Apply([]sweeper.Cell{
		{X: 0, Y: 0, Value: sweeper.Display(2)},
		{X: 2, Y: 2, Value: sweeper.Mine},
		{X: 9, Y: 9, Value: sweeper.Display(1)}, // outside, dropped
	})
	if display, _ := view.CellDisplay(0, 0); display != sweeper.Display(2) {
		t.Errorf("Cell (0, 0) = %v, want 2", display)
	}
	if display, _ := view.CellDisplay(2, 2); display != sweeper.Mine {
		t.Errorf("Cell (2, 2) = %v, want Mine", display)
	}
	if _, err := view.CellDisplay(3, 0); err == nil {
		t.Errorf("Out-of-view query should fail")
	}
}
