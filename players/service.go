package players

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyUsername      = errors.New("username must not be empty")
	ErrPasswordTooShort   = errors.New("password too short")
)

const minPasswordLength = 6

type Service struct {
	Store PlayerStore
}

func (s *Service) Register(username, password string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.Store.CreatePlayer(username, passwordHash)
}

func (s *Service) Login(username, password string) (*Player, error) {
	player, err := s.Store.FindPlayerByName(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !checkPasswordHash(password, player.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return player, nil
}

func (s *Service) FindPlayerByName(name string) (*Player, error) {
	return s.Store.FindPlayerByName(name)
}

func (s *Service) FindPlayerByID(id uint32) (*Player, error) {
	return s.Store.FindPlayerByID(id)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
