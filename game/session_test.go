package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory NetworkConn for pump tests.
type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (f *fakeConn) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) Read() ([]byte, error) { return nil, nil }
func (f *fakeConn) Ping() error           { return nil }

func (f *fakeConn) Close(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func TestPushSessionDrainsOutbox(t *testing.T) {
	conn := &fakeConn{}
	sess := newPushSession(conn)

	done := make(chan struct{})
	go func() {
		sess.WritePump()
		close(done)
	}()

	require.NoError(t, sess.Send(evNewHost("p1")))
	require.NoError(t, sess.Send(evContinueGame()))
	sess.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not drain and exit")
	}

	writes := conn.written()
	require.Len(t, writes, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(writes[0], &first))
	assert.Equal(t, "new_host", first["type"])
	assert.True(t, conn.closed)
}

func TestPushSessionSendAfterClose(t *testing.T) {
	sess := newPushSession(&fakeConn{})
	sess.Close()
	sess.Close() // idempotent

	assert.ErrorIs(t, sess.Send(evContinueGame()), ErrSessionClosed)
}

func TestPushSessionFullOutbox(t *testing.T) {
	// No pump running, so the outbox fills up.
	sess := newPushSession(&fakeConn{})

	for i := 0; i < sessionOutboxSize; i++ {
		require.NoError(t, sess.Send(evContinueGame()))
	}
	assert.ErrorIs(t, sess.Send(evContinueGame()), ErrSendBufferFull)
}
