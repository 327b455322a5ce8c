package game

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/faizsupianwork/temberang/domain"
)

// --- Store ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) RoomByCode(ctx context.Context, code string) (domain.RoomRecord, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.RoomRecord), args.Error(1)
}

func (m *MockStore) PlayersByRoom(ctx context.Context, roomID int64) ([]domain.Player, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]domain.Player), args.Error(1)
}

func (m *MockStore) Snapshot(ctx context.Context, code string) (domain.RoomSnapshot, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.RoomSnapshot), args.Error(1)
}

func (m *MockStore) CreateRoom(ctx context.Context, code, hostID string, settings domain.Settings, updatedAt int64) (int64, error) {
	args := m.Called(ctx, code, hostID, settings, updatedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) InsertPlayer(ctx context.Context, roomID int64, playerID, name string, isHost bool, updatedAt int64) error {
	args := m.Called(ctx, roomID, playerID, name, isHost, updatedAt)
	return args.Error(0)
}

func (m *MockStore) DeletePlayer(ctx context.Context, roomID int64, playerID, newHostID string, updatedAt int64) error {
	args := m.Called(ctx, roomID, playerID, newHostID, updatedAt)
	return args.Error(0)
}

func (m *MockStore) UpdateSettings(ctx context.Context, roomID int64, settings domain.Settings, updatedAt int64) error {
	args := m.Called(ctx, roomID, settings, updatedAt)
	return args.Error(0)
}

func (m *MockStore) SaveGameState(ctx context.Context, roomID int64, status domain.RoomStatus, gs *domain.GameState, updatedAt int64) error {
	args := m.Called(ctx, roomID, status, gs, updatedAt)
	return args.Error(0)
}

func (m *MockStore) SetPlayerRoles(ctx context.Context, roles map[string]domain.Role) error {
	args := m.Called(ctx, roles)
	return args.Error(0)
}

func (m *MockStore) SetPlayerAlive(ctx context.Context, playerID string, alive bool) error {
	args := m.Called(ctx, playerID, alive)
	return args.Error(0)
}

func (m *MockStore) ResetPlayers(ctx context.Context, roomID int64) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStore) Heartbeat(ctx context.Context, playerID string) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

func (m *MockStore) PickWordPair(ctx context.Context, categories []string, anyCategory bool) (domain.WordPair, error) {
	args := m.Called(ctx, categories, anyCategory)
	return args.Get(0).(domain.WordPair), args.Error(1)
}

// --- Session ---

// fakeSession records everything a room pushes at it.
type fakeSession struct {
	mu       sync.Mutex
	events   []Event
	closed   bool
	failSend bool
}

func (f *fakeSession) Send(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return ErrSendBufferFull
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSession) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSession) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		types = append(types, ev["type"].(string))
	}
	return types
}

func (f *fakeSession) lastEvent() Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

func (f *fakeSession) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

func (f *fakeSession) eventOfType(t string) Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev["type"] == t {
			return ev
		}
	}
	return nil
}
