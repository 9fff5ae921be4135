// Package protocol frames the messages exchanged between the game server
// and its clients. Every message starts with a fixed header: one type byte,
// one reserved flags byte and a big-endian uint32 payload length.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mhracek/sweeper/sweeper"
)

type MessageType byte

const (
	RevealCommand MessageType = 0x01
	TextMessage   MessageType = 0x02
	StartGame     MessageType = 0x04
	CellUpdate    MessageType = 0x05
	GameEnd       MessageType = 0x07

	RegisterPlayerRequest  MessageType = 0xC0
	RegisterPlayerResponse MessageType = 0xC1
	AuthRequest            MessageType = 0xC2
	AuthResponseMessage    MessageType = 0xC3
	TokenAuthRequest       MessageType = 0xC4
)

type GameEndType byte

const (
	Win     GameEndType = 0x01
	Loss    GameEndType = 0x02
	Aborted GameEndType = 0x03
)

const (
	HeaderLength         = 6
	UpdateCellByteLength = 9

	// MaxPayloadLength bounds a single frame. The advertised length is
	// attacker-controlled, so it must be checked before allocating.
	MaxPayloadLength = 1 << 20
)

var (
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrPayloadTooLarge    = errors.New("payload length exceeds maximum")
)

// GameParams carries the construction parameters of a board.
type GameParams struct {
	Size  int
	Mines int
}

// AuthPlayerParams carries a name/password pair for register and login.
type AuthPlayerParams struct {
	Name     string
	Password string
}

// AuthResponse is the server's answer to an AuthRequest or a
// TokenAuthRequest. On success Token holds a signed session token the
// client can present to authenticate a later connection.
type AuthResponse struct {
	Success  bool
	PlayerID uint32
	Name     string
	Token    []byte
}

func checkAndDecodeLength(data []byte, message MessageType) (int, error) {
	if len(data) < HeaderLength {
		return 0, fmt.Errorf("data too short to decode")
	}
	if MessageType(data[0]) != message {
		return 0, fmt.Errorf("invalid message type for command E:%d R:%d", message, data[0])
	}
	payloadLength := int(binary.BigEndian.Uint32(data[2:6]))
	if payloadLength != len(data)-HeaderLength {
		return payloadLength, ErrInvalidPayloadSize
	}
	return payloadLength, nil
}

func intToBytes(i int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(i))
	return buf
}

func bytesToInt(data []byte) int {
	return int(int32(binary.BigEndian.Uint32(data)))
}

func writePayloadLength(buf *bytes.Buffer, length int) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(length)); err != nil {
		return fmt.Errorf("failed to write length (%d)", length)
	}
	return nil
}

func writeStringWithLength(buf *bytes.Buffer, str string) error {
	if err := writePayloadLength(buf, len(str)); err != nil {
		return err
	}
	_, err := buf.WriteString(str)
	return err
}

func readStringWithLength(r io.Reader) (string, error) {
	var length int32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	strBytes := make([]byte, length)
	if _, err := io.ReadFull(r, strBytes); err != nil {
		return "", err
	}
	return string(strBytes), nil
}

// ReadMessage reads one framed message, header included, from r.
func ReadMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	payloadLength := int(binary.BigEndian.Uint32(header[2:HeaderLength]))
	if payloadLength > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}
	message := make([]byte, HeaderLength+payloadLength)
	copy(message, header)
	if _, err := io.ReadFull(r, message[HeaderLength:]); err != nil {
		return nil, err
	}
	return message, nil
}

func EncodeReveal(x, y int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(RevealCommand))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, 8); err != nil {
		return nil, err
	}
	buf.Write(intToBytes(x))
	buf.Write(intToBytes(y))
	return buf.Bytes(), nil
}

func DecodeReveal(data []byte) (x, y int, err error) {
	length, err := checkAndDecodeLength(data, RevealCommand)
	if err != nil {
		return 0, 0, err
	}
	if length != 8 {
		return 0, 0, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	return bytesToInt(payload[0:4]), bytesToInt(payload[4:8]), nil
}

func EncodeGameStart(params GameParams) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(StartGame))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, 8); err != nil {
		return nil, err
	}
	buf.Write(intToBytes(params.Size))
	buf.Write(intToBytes(params.Mines))
	return buf.Bytes(), nil
}

func DecodeGameStart(data []byte) (*GameParams, error) {
	length, err := checkAndDecodeLength(data, StartGame)
	if err != nil {
		return nil, err
	}
	if length != 8 {
		return nil, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	return &GameParams{
		Size:  bytesToInt(payload[0:4]),
		Mines: bytesToInt(payload[4:8]),
	}, nil
}

func encodeCellUpdate(cell sweeper.Cell) []byte {
	data := make([]byte, UpdateCellByteLength)
	copy(data[0:4], intToBytes(cell.X))
	copy(data[4:8], intToBytes(cell.Y))
	data[8] = byte(cell.Value)
	return data
}

func EncodeCellUpdates(cells []sweeper.Cell) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(CellUpdate))
	buf.WriteByte(byte(0x00))
	payloadLength := len(cells) * UpdateCellByteLength
	if err := writePayloadLength(&buf, payloadLength); err != nil {
		return nil, err
	}
	for _, cell := range cells {
		buf.Write(encodeCellUpdate(cell))
	}
	if payloadLength+HeaderLength != buf.Len() {
		return nil, fmt.Errorf("incorrect payload length while encoding cell updates")
	}
	return buf.Bytes(), nil
}

func DecodeCellUpdates(data []byte) ([]sweeper.Cell, error) {
	payloadLength, err := checkAndDecodeLength(data, CellUpdate)
	if err != nil {
		return nil, err
	}
	if payloadLength%UpdateCellByteLength != 0 {
		return nil, fmt.Errorf("update cells payload length mismatch %d", payloadLength)
	}
	payload := data[HeaderLength:]
	cells := make([]sweeper.Cell, payloadLength/UpdateCellByteLength)
	for i := range cells {
		chunk := payload[i*UpdateCellByteLength : (i+1)*UpdateCellByteLength]
		cells[i] = sweeper.Cell{
			X:     bytesToInt(chunk[0:4]),
			Y:     bytesToInt(chunk[4:8]),
			Value: sweeper.Display(chunk[8]),
		}
	}
	return cells, nil
}

func EncodeGameEnd(endType GameEndType) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(GameEnd))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, 1); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(endType))
	return buf.Bytes(), nil
}

func DecodeGameEnd(data []byte) (GameEndType, error) {
	length, err := checkAndDecodeLength(data, GameEnd)
	if err != nil {
		return 0, err
	}
	if length != 1 {
		return 0, ErrInvalidPayloadSize
	}
	return GameEndType(data[HeaderLength]), nil
}

func EncodeTextMessage(message string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(TextMessage))
	buf.WriteByte(byte(0x00))
	payload := []byte(message)
	if err := writePayloadLength(&buf, len(payload)); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeTextMessage(data []byte) (string, error) {
	if _, err := checkAndDecodeLength(data, TextMessage); err != nil {
		return "", err
	}
	return string(data[HeaderLength:]), nil
}

func encodeAuthPlayerParamsMessage(params AuthPlayerParams, tp MessageType) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(tp))
	buf.WriteByte(byte(0x00))
	var payload bytes.Buffer
	if err := writeStringWithLength(&payload, params.Name); err != nil {
		return nil, err
	}
	if _, err := payload.WriteString(params.Password); err != nil {
		return nil, err
	}
	if err := writePayloadLength(&buf, payload.Len()); err != nil {
		return nil, err
	}
	if _, err := buf.Write(payload.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeAuthPlayerParams(data []byte, tp MessageType) (*AuthPlayerParams, error) {
	length, err := checkAndDecodeLength(data, tp)
	if err != nil {
		return nil, err
	}
	if length < 4 {
		return nil, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	nameLen := bytesToInt(payload[0:4])
	if nameLen < 0 || nameLen+4 > length {
		return nil, ErrInvalidPayloadSize
	}
	passwordOffset := nameLen + 4
	return &AuthPlayerParams{
		Name:     string(payload[4:passwordOffset]),
		Password: string(payload[passwordOffset:]),
	}, nil
}

func EncodeRegisterPlayerRequest(params AuthPlayerParams) ([]byte, error) {
	return encodeAuthPlayerParamsMessage(params, RegisterPlayerRequest)
}

func DecodeRegisterPlayerRequest(data []byte) (*AuthPlayerParams, error) {
	return decodeAuthPlayerParams(data, RegisterPlayerRequest)
}

func EncodeAuthRequest(params AuthPlayerParams) ([]byte, error) {
	return encodeAuthPlayerParamsMessage(params, AuthRequest)
}

func DecodeAuthRequest(data []byte) (*AuthPlayerParams, error) {
	return decodeAuthPlayerParams(data, AuthRequest)
}

func EncodeRegisterPlayerResponse(success bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(RegisterPlayerResponse))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, 1); err != nil {
		return nil, err
	}
	var b byte = 0
	if success {
		b = 1
	}
	buf.WriteByte(b)
	return buf.Bytes(), nil
}

func DecodeRegisterPlayerResponse(data []byte) (bool, error) {
	length, err := checkAndDecodeLength(data, RegisterPlayerResponse)
	if err != nil {
		return false, err
	}
	if length != 1 {
		return false, ErrInvalidPayloadSize
	}
	return data[HeaderLength] == 1, nil
}

func EncodeAuthResponse(response AuthResponse) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(AuthResponseMessage))
	buf.WriteByte(byte(0x00))
	if !response.Success {
		if err := writePayloadLength(&buf, 1); err != nil {
			return nil, err
		}
		buf.WriteByte(0)
		return buf.Bytes(), nil
	}
	// Success + playerID + nameLen + name + tokenLen + token
	payloadLength := 1 + 4 + 4 + len(response.Name) + 4 + len(response.Token)
	if err := writePayloadLength(&buf, payloadLength); err != nil {
		return nil, err
	}
	buf.WriteByte(1)
	if err := binary.Write(&buf, binary.BigEndian, response.PlayerID); err != nil {
		return nil, err
	}
	if err := writeStringWithLength(&buf, response.Name); err != nil {
		return nil, err
	}
	if err := writePayloadLength(&buf, len(response.Token)); err != nil {
		return nil, err
	}
	buf.Write(response.Token)
	return buf.Bytes(), nil
}

func DecodeAuthResponse(data []byte) (*AuthResponse, error) {
	length, err := checkAndDecodeLength(data, AuthResponseMessage)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	if payload[0] != 1 {
		if length != 1 {
			return nil, ErrInvalidPayloadSize
		}
		return &AuthResponse{Success: false}, nil
	}
	// Success + id + nameLen + name (at least 1 char) + tokenLen + token
	if length < 1+4+4+1+4 {
		return nil, ErrInvalidPayloadSize
	}
	id := binary.BigEndian.Uint32(payload[1:5])
	nameLen := bytesToInt(payload[5:9])
	if nameLen < 1 || 9+nameLen+4 > length {
		return nil, ErrInvalidPayloadSize
	}
	tokenOffset := 9 + nameLen
	tokenLen := bytesToInt(payload[tokenOffset : tokenOffset+4])
	if tokenLen < 0 || tokenOffset+4+tokenLen != length {
		return nil, ErrInvalidPayloadSize
	}
	var token []byte
	if tokenLen > 0 {
		token = append([]byte{}, payload[tokenOffset+4:tokenOffset+4+tokenLen]...)
	}
	return &AuthResponse{
		Success:  true,
		PlayerID: id,
		Name:     string(payload[9:tokenOffset]),
		Token:    token,
	}, nil
}

// EncodeTokenAuth frames a session token for re-authentication. The token
// bytes are opaque here; the players package signs and validates them.
func EncodeTokenAuth(token []byte) ([]byte, error) {
	if len(token) == 0 {
		return nil, ErrInvalidPayloadSize
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(TokenAuthRequest))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, len(token)); err != nil {
		return nil, err
	}
	buf.Write(token)
	return buf.Bytes(), nil
}

func DecodeTokenAuth(data []byte) ([]byte, error) {
	length, err := checkAndDecodeLength(data, TokenAuthRequest)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, ErrInvalidPayloadSize
	}
	return append([]byte{}, data[HeaderLength:]...), nil
}
