package game

import "sync"

// Registry is the arena of resident rooms, keyed by room code. It only
// guards the map itself; each room serializes its own mutations.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

func (reg *Registry) Lookup(code string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[code]
}

// LoadOrStore makes a freshly loaded room resident, keeping the existing one
// if another goroutine raced the load.
func (reg *Registry) LoadOrStore(code string, room *Room) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.rooms[code]; ok {
		return existing
	}
	reg.rooms[code] = room
	return room
}

func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
