// internal/room/conn.go
package room

import (
	"log"

	"github.com/google/uuid"
)

// Conn is one client's presence on the server. The websocket itself lives in
// the transport layer; everything room-side talks to the connection through
// the buffered OutChan, drained by the transport's write pump.
type Conn struct {
	ID       uuid.UUID
	Username string

	// Cancel stops the goroutines attached to this connection.
	Cancel func()

	// OutChan carries marshalable outbound frames to the write pump.
	OutChan chan interface{}
}

// NewConn builds a connection with a fresh identity and a buffered outbound
// channel.
func NewConn(cancel func()) *Conn {
	return &Conn{
		ID:      uuid.New(),
		Cancel:  cancel,
		OutChan: make(chan interface{}, 16),
	}
}

// Send pushes a frame onto the connection's OutChan without blocking. A full
// or closed channel drops the frame; the write pump owns backpressure and the
// read loop owns disconnect detection.
func (c *Conn) Send(msg interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("conn %s: send on closed OutChan recovered: %v", c.ID, r)
		}
	}()
	select {
	case c.OutChan <- msg:
	default:
		log.Printf("conn %s: OutChan full or closed, dropping frame", c.ID)
	}
}
