// Package server hosts minesweeper games over TCP. Every connection gets
// its own session with its own board; sessions never share game state.
package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mhracek/sweeper/db"
	"github.com/mhracek/sweeper/players"
	"github.com/mhracek/sweeper/protocol"
	"github.com/mhracek/sweeper/sweeper"
)

// Config is read from the environment by cmd/server.
type Config struct {
	Port        uint16 `env:"SWEEPER_PORT" envDefault:"42069"`
	DBPath      string `env:"SWEEPER_DB"`
	RequireAuth bool   `env:"SWEEPER_REQUIRE_AUTH" envDefault:"false"`
}

// GameRecorder stores the outcome of a finished game. db.SQLStore
// implements it.
type GameRecorder interface {
	RecordResult(result db.GameResult) error
}

// Session is the state of one connected player: a connection, an optional
// account and at most one board.
type Session struct {
	ID         uuid.UUID
	conn       net.Conn
	connected  bool
	writeMutex sync.Mutex
	board      *sweeper.Board
	params     protocol.GameParams
	player     *players.Player
}

type MessageHandler func(session *Session, data []byte) error

type command struct {
	message []byte
	session *Session
}

// Tokens issued on login outlive the connection, so a client can
// re-authenticate a later session without sending the password again.
const tokenTTL = 24 * time.Hour

type Server struct {
	listener       net.Listener
	Port           uint16
	log            *zap.Logger
	accounts       *players.Service
	recorder       GameRecorder
	requireAuth    bool
	tokenSecret    []byte
	handlers       map[protocol.MessageType]MessageHandler
	messageChannel chan command
	sessionsMux    sync.Mutex
	sessions       map[uuid.UUID]*Session
}

func (server *Server) sendMessage(session *Session, data []byte) {
	session.writeMutex.Lock()
	defer session.writeMutex.Unlock()
	if !session.connected {
		return
	}
	if _, err := session.conn.Write(data); err != nil {
		server.log.Warn("write failed",
			zap.String("session", session.ID.String()), zap.Error(err))
	}
}

func (server *Server) sendTextMessage(session *Session, msg string) {
	encoded, err := protocol.EncodeTextMessage(msg)
	if err != nil {
		server.log.Error("failed to encode text message", zap.Error(err))
		return
	}
	server.sendMessage(session, encoded)
}

func (server *Server) handleConnection(session *Session) {
	server.sessionsMux.Lock()
	server.sessions[session.ID] = session
	server.sessionsMux.Unlock()
	server.log.Info("session connected",
		zap.String("session", session.ID.String()),
		zap.String("remote", session.conn.RemoteAddr().String()))
	for {
		message, err := protocol.ReadMessage(session.conn)
		if err != nil {
			server.closeSession(session)
			return
		}
		server.messageChannel <- command{message, session}
	}
}

func (server *Server) closeSession(session *Session) {
	session.writeMutex.Lock()
	session.connected = false
	session.writeMutex.Unlock()
	session.conn.Close()
	server.sessionsMux.Lock()
	delete(server.sessions, session.ID)
	server.sessionsMux.Unlock()
	server.log.Info("session disconnected", zap.String("session", session.ID.String()))
}

func (server *Server) handleMessage(session *Session, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("cannot handle empty message")
	}
	msgType := protocol.MessageType(data[0])
	handler, exists := server.handlers[msgType]
	if !exists {
		return fmt.Errorf("no handler registered for message type: %d", msgType)
	}
	return handler(session, data)
}

func (server *Server) registerHandler(msgType protocol.MessageType, handler MessageHandler) {
	server.handlers[msgType] = handler
}

func (server *Server) authorized(session *Session) bool {
	return !server.requireAuth || session.player != nil
}

func (server *Server) recordResult(session *Session, outcome db.Outcome) {
	if server.recorder == nil || session.player == nil {
		return
	}
	result := db.GameResult{
		PlayerID:  session.player.ID,
		BoardSize: session.params.Size,
		MineCount: session.params.Mines,
		Outcome:   outcome,
	}
	if err := server.recorder.RecordResult(result); err != nil {
		server.log.Error("failed to record game result",
			zap.String("session", session.ID.String()), zap.Error(err))
	}
}

// grantAuth attaches player to the session and builds the success response,
// token included.
func (server *Server) grantAuth(session *Session, player *players.Player) protocol.AuthResponse {
	session.player = player
	response := protocol.AuthResponse{Success: true, PlayerID: player.ID, Name: player.Name}
	token, err := players.GenerateAuthToken(player, server.tokenSecret, tokenTTL)
	if err != nil {
		server.log.Error("failed to generate auth token",
			zap.String("session", session.ID.String()), zap.Error(err))
		return response
	}
	response.Token = token.Bytes()
	return response
}

// resumePlayer resolves a presented token to an account. Any failure means
// the client logs in again with its password.
func (server *Server) resumePlayer(raw []byte) (*players.Player, error) {
	token, err := players.ParseAuthToken(raw)
	if err != nil {
		return nil, err
	}
	if _, err := players.ValidateAuthToken(token, server.tokenSecret); err != nil {
		return nil, err
	}
	return server.accounts.FindPlayerByID(token.PlayerID)
}

func (server *Server) registerHandlers() {
	server.registerHandler(protocol.StartGame, func(session *Session, data []byte) error {
		params, err := protocol.DecodeGameStart(data)
		if err != nil {
			return err
		}
		if !server.authorized(session) {
			server.sendTextMessage(session, "Log in before starting a game.")
			return nil
		}
		if session.board != nil && session.board.Status() == sweeper.InProgress {
			// Starting over abandons the current board.
			server.recordResult(session, db.OutcomeAborted)
			endMsg, err := protocol.EncodeGameEnd(protocol.Aborted)
			if err != nil {
				return err
			}
			server.sendMessage(session, endMsg)
		}
		board, err := sweeper.CreateRandomBoard(params.Size, params.Mines)
		if err != nil {
			var paramsErr *sweeper.InvalidBoardParamsError
			if errors.As(err, &paramsErr) {
				server.sendTextMessage(session, err.Error())
				return nil
			}
			return err
		}
		session.board = board
		session.params = *params
		server.log.Info("game started",
			zap.String("session", session.ID.String()),
			zap.Int("size", params.Size),
			zap.Int("mines", params.Mines))
		startMsg, err := protocol.EncodeGameStart(*params)
		if err != nil {
			return err
		}
		server.sendMessage(session, startMsg)
		return nil
	})

	server.registerHandler(protocol.RevealCommand, func(session *Session, data []byte) error {
		if session.board == nil {
			server.sendTextMessage(session, "Game not running. Cant make moves.")
			return nil
		}
		x, y, err := protocol.DecodeReveal(data)
		if err != nil {
			return err
		}
		updated, err := session.board.Reveal(x, y)
		if err != nil {
			var moveErr *sweeper.InvalidMoveError
			switch {
			case errors.As(err, &moveErr),
				errors.Is(err, sweeper.ErrAlreadyRevealed),
				errors.Is(err, sweeper.ErrGameOver):
				server.sendTextMessage(session, err.Error())
				return nil
			default:
				return err
			}
		}
		if len(updated) > 0 {
			encoded, err := protocol.EncodeCellUpdates(updated)
			if err != nil {
				return err
			}
			server.sendMessage(session, encoded)
		}
		var endMsg []byte
		switch session.board.Status() {
		case sweeper.Lost:
			server.recordResult(session, db.OutcomeLost)
			endMsg, err = protocol.EncodeGameEnd(protocol.Loss)
		case sweeper.Won:
			server.recordResult(session, db.OutcomeWon)
			endMsg, err = protocol.EncodeGameEnd(protocol.Win)
		}
		if err != nil {
			return err
		}
		if endMsg != nil {
			server.sendMessage(session, endMsg)
			session.board = nil
		}
		return nil
	})

	server.registerHandler(protocol.RegisterPlayerRequest, func(session *Session, data []byte) error {
		params, err := protocol.DecodeRegisterPlayerRequest(data)
		if err != nil {
			return err
		}
		success := false
		if server.accounts != nil {
			if err := server.accounts.Register(params.Name, params.Password); err != nil {
				server.log.Info("registration rejected",
					zap.String("session", session.ID.String()),
					zap.String("name", params.Name), zap.Error(err))
			} else {
				success = true
			}
		}
		response, err := protocol.EncodeRegisterPlayerResponse(success)
		if err != nil {
			return err
		}
		server.sendMessage(session, response)
		return nil
	})

	server.registerHandler(protocol.AuthRequest, func(session *Session, data []byte) error {
		params, err := protocol.DecodeAuthRequest(data)
		if err != nil {
			return err
		}
		response := protocol.AuthResponse{}
		if server.accounts != nil {
			player, err := server.accounts.Login(params.Name, params.Password)
			if err == nil {
				response = server.grantAuth(session, player)
			}
		}
		encoded, err := protocol.EncodeAuthResponse(response)
		if err != nil {
			return err
		}
		server.sendMessage(session, encoded)
		return nil
	})

	server.registerHandler(protocol.TokenAuthRequest, func(session *Session, data []byte) error {
		raw, err := protocol.DecodeTokenAuth(data)
		if err != nil {
			return err
		}
		response := protocol.AuthResponse{}
		if server.accounts != nil {
			player, err := server.resumePlayer(raw)
			if err != nil {
				server.log.Info("token auth rejected",
					zap.String("session", session.ID.String()), zap.Error(err))
			} else {
				response = server.grantAuth(session, player)
			}
		}
		encoded, err := protocol.EncodeAuthResponse(response)
		if err != nil {
			return err
		}
		server.sendMessage(session, encoded)
		return nil
	})
}

// manageCommands drains the message channel. All board mutations happen
// here, so each session's game state is only ever touched by one goroutine.
func (server *Server) manageCommands() {
	for command := range server.messageChannel {
		if err := server.handleMessage(command.session, command.message); err != nil {
			server.log.Warn("message handling failed",
				zap.String("session", command.session.ID.String()), zap.Error(err))
		}
	}
}

func (server *Server) serverLoop() {
	defer server.listener.Close()
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			return
		}
		session := &Session{
			ID:        uuid.New(),
			conn:      conn,
			connected: true,
		}
		go server.handleConnection(session)
	}
}

// Close stops accepting connections and drops every live session.
func (server *Server) Close() {
	server.listener.Close()
	server.sessionsMux.Lock()
	sessions := make([]*Session, 0, len(server.sessions))
	for _, session := range server.sessions {
		sessions = append(sessions, session)
	}
	server.sessionsMux.Unlock()
	for _, session := range sessions {
		server.closeSession(session)
	}
}

// Spawn starts a server on config.Port (0 picks a free port, reported via
// the Port field). accounts and recorder may be nil: without accounts every
// register/login fails, without recorder outcomes are not persisted.
func Spawn(config Config, log *zap.Logger, accounts *players.Service, recorder GameRecorder) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", config.Port))
	if err != nil {
		return nil, err
	}
	// Tokens are only honored by the process that signed them.
	tokenSecret := make([]byte, 32)
	if _, err := rand.Read(tokenSecret); err != nil {
		listener.Close()
		return nil, err
	}
	server := &Server{
		listener:       listener,
		Port:           uint16(listener.Addr().(*net.TCPAddr).Port),
		log:            log,
		accounts:       accounts,
		recorder:       recorder,
		requireAuth:    config.RequireAuth,
		tokenSecret:    tokenSecret,
		handlers:       make(map[protocol.MessageType]MessageHandler),
		messageChannel: make(chan command),
		sessions:       make(map[uuid.UUID]*Session),
	}
	server.registerHandlers()
	go server.manageCommands()
	go server.serverLoop()
	return server, nil
}
