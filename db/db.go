// Package db is the SQLite persistence layer: player accounts and the
// results of finished games. Boards themselves are never stored.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mhracek/sweeper/players"
)

//go:embed schema.sql
var ddl string

// Outcome of a finished game as stored in game_results.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomeAborted Outcome = "aborted"
)

// GameResult is one finished game of a player.
type GameResult struct {
	PlayerID  uint32
	BoardSize int
	MineCount int
	Outcome   Outcome
}

type SQLStore struct {
	DB  *sql.DB
	ctx context.Context
}

func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func (s *SQLStore) InitializeTables() error {
	return InitializeTables(s.DB)
}

// Open opens the SQLite database at path.
func Open(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Need to ping the database to check if the file could be opened
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return &SQLStore{DB: db, ctx: context.Background()}, nil
}

// InitStore opens the database named by the SWEEPER_DB environment variable.
func InitStore() (*SQLStore, error) {
	path := os.Getenv("SWEEPER_DB")
	if path == "" {
		return nil, fmt.Errorf("SWEEPER_DB not set in environment")
	}
	return Open(path)
}

func (s *SQLStore) CreatePlayer(name, hash string) error {
	_, err := s.DB.ExecContext(s.ctx,
		"INSERT INTO players (username, password_hash) VALUES (?, ?)", name, hash)
	return err
}

func (s *SQLStore) FindPlayerByName(name string) (*players.Player, error) {
	row := s.DB.QueryRowContext(s.ctx,
		"SELECT id, username, password_hash FROM players WHERE username = ?", name)
	var player players.Player
	if err := row.Scan(&player.ID, &player.Name, &player.PasswordHash); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *SQLStore) FindPlayerByID(id uint32) (*players.Player, error) {
	row := s.DB.QueryRowContext(s.ctx,
		"SELECT id, username, password_hash FROM players WHERE id = ?", id)
	var player players.Player
	if err := row.Scan(&player.ID, &player.Name, &player.PasswordHash); err != nil {
		return nil, err
	}
	return &player, nil
}

// RecordResult stores one finished game.
func (s *SQLStore) RecordResult(result GameResult) error {
	_, err := s.DB.ExecContext(s.ctx,
		"INSERT INTO game_results (player_id, board_size, mine_count, outcome) VALUES (?, ?, ?, ?)",
		result.PlayerID, result.BoardSize, result.MineCount, string(result.Outcome))
	return err
}

// ResultCounts reports how many games a player finished per outcome.
func (s *SQLStore) ResultCounts(playerID uint32) (map[Outcome]int, error) {
	rows, err := s.DB.QueryContext(s.ctx,
		"SELECT outcome, COUNT(*) FROM game_results WHERE player_id = ? GROUP BY outcome", playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[Outcome(outcome)] = count
	}
	return counts, rows.Err()
}
