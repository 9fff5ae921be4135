package players

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"time"
)

// AuthToken is an HMAC-signed session token handed out after login.
type AuthToken struct {
	PlayerID  uint32
	Expiry    int64
	Nonce     [16]byte
	Signature [32]byte
}

const AuthTokenLength = 4 + 8 + 16 + 32

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedToken   = errors.New("malformed token")
)

func GenerateAuthToken(player *Player, secret []byte, ttl time.Duration) (AuthToken, error) {
	expiration := time.Now().Add(ttl).Unix()
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return AuthToken{}, err
	}
	signature := calculateSignature(constructSignatureData(player.ID, nonce, expiration), secret)
	return AuthToken{
		PlayerID:  player.ID,
		Expiry:    expiration,
		Nonce:     nonce,
		Signature: [32]byte(signature),
	}, nil
}

func ValidateAuthToken(token AuthToken, secret []byte) (bool, error) {
	if time.Now().Unix() > token.Expiry {
		return false, ErrTokenExpired
	}
	toVerify := constructSignatureData(token.PlayerID, token.Nonce, token.Expiry)
	if !hmac.Equal(token.Signature[:], calculateSignature(toVerify, secret)) {
		return false, ErrInvalidSignature
	}
	return true, nil
}

// Bytes serializes the token for the wire: playerID + expiry + nonce +
// signature, AuthTokenLength bytes in total.
func (token AuthToken) Bytes() []byte {
	data := make([]byte, AuthTokenLength)
	binary.BigEndian.PutUint32(data[0:4], token.PlayerID)
	binary.BigEndian.PutUint64(data[4:12], uint64(token.Expiry))
	copy(data[12:28], token.Nonce[:])
	copy(data[28:], token.Signature[:])
	return data
}

func ParseAuthToken(data []byte) (AuthToken, error) {
	if len(data) != AuthTokenLength {
		return AuthToken{}, ErrMalformedToken
	}
	token := AuthToken{
		PlayerID: binary.BigEndian.Uint32(data[0:4]),
		Expiry:   int64(binary.BigEndian.Uint64(data[4:12])),
	}
	copy(token.Nonce[:], data[12:28])
	copy(token.Signature[:], data[28:])
	return token, nil
}

func constructSignatureData(playerID uint32, nonce [16]byte, expiration int64) []byte {
	// playerID + expiration + nonce
	data := make([]byte, 4+8+16)
	binary.BigEndian.PutUint32(data[0:4], playerID)
	binary.BigEndian.PutUint64(data[4:12], uint64(expiration))
	copy(data[12:], nonce[:])
	return data
}

func calculateSignature(data []byte, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
