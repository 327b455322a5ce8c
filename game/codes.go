package game

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// roomCodeAlphabet skips 0/O/1/I, which are easy to confuse when a code is
// read aloud or handwritten.
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
)

// CodeGenerator draws fixed-length room codes. Uniqueness is enforced by the
// store's unique index, not here; callers retry on a duplicate.
type CodeGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewCodeGenerator(seed int64) *CodeGenerator {
	return &CodeGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *CodeGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[g.rng.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

func NewPlayerID() string {
	return "player_" + uuid.NewString()
}
