package game

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	ErrSendBufferFull = errors.New("send-buffer-full")
	ErrSessionClosed  = errors.New("session-closed")
)

const sessionOutboxSize = 64

// Session is a live push transport bound to a player. The room owns the
// binding; the session only carries a back-reference, never the player
// lifecycle.
type Session interface {
	Send(ev Event) error
	Close()
}

// pushSession pairs a NetworkConn with a buffered outbox drained by a write
// pump, so a slow peer can never block a mutating caller. A full outbox or a
// write error counts as a dead peer.
type pushSession struct {
	conn   NetworkConn
	outbox chan []byte
	pings  chan struct{}

	mu     sync.Mutex
	closed bool
}

func newPushSession(conn NetworkConn) *pushSession {
	return &pushSession{
		conn:   conn,
		outbox: make(chan []byte, sessionOutboxSize),
		pings:  make(chan struct{}, 1),
	}
}

func (s *pushSession) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (s *pushSession) Ping() {
	select {
	case s.pings <- struct{}{}:
	default:
	}
}

func (s *pushSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.outbox)
	s.mu.Unlock()

	s.conn.Close("")
}

// WritePump drains the outbox onto the wire until the session closes or a
// write fails. Runs on its own goroutine, one per connection.
func (s *pushSession) WritePump() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case data, ok := <-s.outbox:
			if !ok {
				return
			}
			if err := s.conn.Write(data); err != nil {
				return
			}
		case <-s.pings:
			if err := s.conn.Ping(); err != nil {
				return
			}
		case <-keepalive.C:
			if err := s.conn.Ping(); err != nil {
				return
			}
		}
	}
}
