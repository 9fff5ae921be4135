package players

// Player is a registered account.
type Player struct {
	ID           uint32
	Name         string
	PasswordHash string
}

// PlayerStore persists accounts. The SQLite implementation lives in the
// db package; tests use an in-memory map.
type PlayerStore interface {
	CreatePlayer(username, hash string) error
	FindPlayerByName(username string) (*Player, error)
	FindPlayerByID(id uint32) (*Player, error)
}
