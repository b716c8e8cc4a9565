package live

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the outbound half of a websocket connection. Frames are queued on a
// bounded channel and written by a single writer goroutine, so a slow client
// only ever loses its own frames.
type Conn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	writeWait time.Duration

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, buffer int, writeWait time.Duration) *Conn {
	return &Conn{
		ws:        ws,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		writeWait: writeWait,
	}
}

// Send queues frame for delivery. It never blocks; a full queue or a closed
// connection rejects the frame.
func (c *Conn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the socket. Safe to call more than once
// and from any goroutine.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	return c.ws.Close()
}

// writePump drains the queue until the connection closes or a write fails.
func (c *Conn) writePump() {
	defer func() { _ = c.Close() }()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
