package game

import (
	"sort"
	"sync"
	"time"

	"github.com/faizsupianwork/temberang/domain"
)

type roomPlayer struct {
	id       string
	name     string
	isAlive  bool
	role     domain.Role
	joinedAt time.Time
	lastSeen time.Time
}

// Room is the in-memory ownership unit for one room code. Every mutation of
// its state happens under mu; the registry never takes a lock across rooms.
type Room struct {
	mu sync.Mutex

	rowID     int64
	code      string
	hostID    string
	status    domain.RoomStatus
	settings  domain.Settings
	game      *domain.GameState
	players   []*roomPlayer
	sessions  map[string]Session
	updatedAt int64
}

func newRoom(rec domain.RoomRecord, players []domain.Player) *Room {
	r := &Room{
		rowID:     rec.ID,
		code:      rec.Code,
		hostID:    rec.HostID,
		status:    rec.Status,
		settings:  rec.Settings,
		game:      rec.GameState,
		sessions:  make(map[string]Session),
		updatedAt: rec.UpdatedAt,
	}
	for _, p := range players {
		r.players = append(r.players, &roomPlayer{
			id:       p.ID,
			name:     p.Name,
			isAlive:  p.IsAlive,
			role:     p.Role,
			joinedAt: p.JoinedAt,
		})
	}
	r.sortPlayers()
	return r
}

// sortPlayers keeps join order canonical: joined_at ascending, id as the
// tie-break. Host reassignment and snapshots both depend on it.
func (r *Room) sortPlayers() {
	sort.SliceStable(r.players, func(i, j int) bool {
		if r.players[i].joinedAt.Equal(r.players[j].joinedAt) {
			return r.players[i].id < r.players[j].id
		}
		return r.players[i].joinedAt.Before(r.players[j].joinedAt)
	})
}

func (r *Room) playerByID(id string) *roomPlayer {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayerByID(id string) {
	for i, p := range r.players {
		if p.id == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return
		}
	}
}

func (r *Room) aliveCount() int {
	n := 0
	for _, p := range r.players {
		if p.isAlive {
			n++
		}
	}
	return n
}

func (r *Room) playerList() []domain.Player {
	out := make([]domain.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, domain.Player{
			ID:       p.id,
			Name:     p.name,
			IsHost:   p.id == r.hostID,
			IsAlive:  p.isAlive,
			Role:     p.role,
			JoinedAt: p.joinedAt,
		})
	}
	return out
}

func (r *Room) snapshot() domain.RoomSnapshot {
	return domain.RoomSnapshot{
		RoomCode:  r.code,
		HostID:    r.hostID,
		Status:    r.status,
		Settings:  r.settings,
		GameState: r.game,
		Players:   r.playerList(),
		UpdatedAt: r.updatedAt,
	}
}

// broadcast fans an event out to every attached session. Delivery is
// best-effort: a session whose outbox is full or closed is detached on the
// spot, and its dying connection takes the normal disconnect path in the
// reader. Caller holds r.mu, so per-room event order matches commit order.
func (r *Room) broadcast(ev Event) {
	for id, sess := range r.sessions {
		if err := sess.Send(ev); err != nil {
			delete(r.sessions, id)
			sess.Close()
		}
	}
}

// sendTo delivers an event to a single player's session, if one is attached.
func (r *Room) sendTo(playerID string, ev Event) {
	sess, ok := r.sessions[playerID]
	if !ok {
		return
	}
	if err := sess.Send(ev); err != nil {
		delete(r.sessions, playerID)
		sess.Close()
	}
}
