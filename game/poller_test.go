package game

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/faizsupianwork/temberang/domain"
)

// Poll tests run against the wall clock with shrunken intervals.
func newPollService(st *MockStore) *Service {
	return NewService(st, ServiceConfig{
		PollInterval: 2 * time.Millisecond,
		PollTimeout:  50 * time.Millisecond,
		Seed:         1,
	}, zerolog.Nop())
}

func TestWaitForUpdateReturnsNewerStateImmediately(t *testing.T) {
	st := &MockStore{}
	stubLobby(st, 2)

	s := newPollService(st)
	_, err := s.room(context.Background(), testRoomCode)
	require.NoError(t, err)

	start := time.Now()
	snap, ts, err := s.WaitForUpdate(context.Background(), testRoomCode, 50)
	require.NoError(t, err)

	assert.Equal(t, int64(100), snap.UpdatedAt)
	assert.NotZero(t, ts)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitForUpdateObservesChange(t *testing.T) {
	st := &MockStore{}
	stubLobby(st, 2)

	s := newPollService(st)
	s.pollTimeout = time.Second
	r, err := s.room(context.Background(), testRoomCode)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.mu.Lock()
		r.updatedAt = 101
		r.mu.Unlock()
	}()

	snap, _, err := s.WaitForUpdate(context.Background(), testRoomCode, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(101), snap.UpdatedAt)
}

func TestWaitForUpdateReturnsUnchangedAtCeiling(t *testing.T) {
	st := &MockStore{}
	stubLobby(st, 2)

	s := newPollService(st)
	_, err := s.room(context.Background(), testRoomCode)
	require.NoError(t, err)

	start := time.Now()
	snap, ts, err := s.WaitForUpdate(context.Background(), testRoomCode, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), snap.UpdatedAt)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.NotZero(t, ts)
}

func TestWaitForUpdateContextCancel(t *testing.T) {
	st := &MockStore{}
	stubLobby(st, 2)

	s := newPollService(st)
	s.pollTimeout = time.Minute
	_, err := s.room(context.Background(), testRoomCode)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, _, err = s.WaitForUpdate(ctx, testRoomCode, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForUpdateNonResidentReadsStore(t *testing.T) {
	st := &MockStore{}
	st.On("Snapshot", mock.Anything, testRoomCode).
		Return(domain.RoomSnapshot{RoomCode: testRoomCode, UpdatedAt: 200}, nil)

	s := newPollService(st)
	snap, _, err := s.WaitForUpdate(context.Background(), testRoomCode, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.UpdatedAt)
	assert.Zero(t, s.Registry().Len())
}
