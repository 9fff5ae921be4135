package protocol

import (
	"bufio"
	"fmt"
	"net"
	"sync"
)

type MessageHandler func([]byte) error

// ConnectionController owns one framed TCP connection: it serializes
// outbound writes through a channel and dispatches inbound messages to
// handlers registered per message type.
type ConnectionController struct {
	mu              sync.Mutex
	conn            net.Conn
	connected       bool
	messageHandlers map[MessageType]MessageHandler
	messageChannel  chan []byte
}

func CreateConnectionController() *ConnectionController {
	controller := &ConnectionController{
		messageHandlers: make(map[MessageType]MessageHandler),
		messageChannel:  make(chan []byte, 64),
	}
	controller.startWriter()
	return controller
}

// currentConn snapshots the connection state. The writer goroutine and the
// read loop run concurrently with Connect and Close.
func (controller *ConnectionController) currentConn() (net.Conn, bool) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.conn, controller.connected
}

func (controller *ConnectionController) Connected() bool {
	_, connected := controller.currentConn()
	return connected
}

func (controller *ConnectionController) startWriter() {
	go func() {
		for message := range controller.messageChannel {
			conn, connected := controller.currentConn()
			if !connected {
				continue
			}
			if _, err := conn.Write(message); err != nil {
				fmt.Println("Error writing to connection:", err)
				return
			}
		}
	}()
}

func (controller *ConnectionController) RemoteAddress() string {
	conn, connected := controller.currentConn()
	if !connected {
		return ""
	}
	return conn.RemoteAddr().String()
}

// SendMessage queues message for the writer goroutine. It fails rather
// than blocks when the outbound buffer is full.
func (controller *ConnectionController) SendMessage(message []byte) error {
	select {
	case controller.messageChannel <- message:
	default:
		return fmt.Errorf("failed to write to message channel")
	}
	return nil
}

func (controller *ConnectionController) SetConnection(conn net.Conn) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.connected {
		return fmt.Errorf("controller is already connected")
	}
	controller.conn = conn
	controller.connected = true
	return nil
}

func (controller *ConnectionController) Connect(host string, port uint16) error {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	if err := controller.SetConnection(conn); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Close drops the connection. The read loop returns on the next read.
func (controller *ConnectionController) Close() error {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if !controller.connected {
		return nil
	}
	controller.connected = false
	return controller.conn.Close()
}

func (controller *ConnectionController) markDisconnected() {
	controller.mu.Lock()
	controller.connected = false
	controller.mu.Unlock()
}

func (controller *ConnectionController) RegisterHandler(msgType MessageType, handlerFunc MessageHandler) {
	controller.messageHandlers[msgType] = handlerFunc
}

func (controller *ConnectionController) HandleMessage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("cannot handle empty message")
	}
	msgType := MessageType(data[0])
	handlerFunc, exists := controller.messageHandlers[msgType]
	if !exists {
		return fmt.Errorf("no handler registered for message type: %d", msgType)
	}
	return handlerFunc(data)
}

// ReadLoop reads framed messages until the connection drops, dispatching
// each one to its registered handler. Handler errors are reported but do
// not end the loop.
func (controller *ConnectionController) ReadLoop() error {
	conn, connected := controller.currentConn()
	if !connected {
		return fmt.Errorf("controller is not connected")
	}
	reader := bufio.NewReader(conn)
	for {
		message, err := ReadMessage(reader)
		if err != nil {
			controller.markDisconnected()
			return fmt.Errorf("lost connection: %w", err)
		}
		if err := controller.HandleMessage(message); err != nil {
			fmt.Println(err.Error())
		}
	}
}
