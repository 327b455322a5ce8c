package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	g := NewCodeGenerator(1)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := g.Generate()
		require.Len(t, code, roomCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, c), "unexpected character %q in %s", c, code)
		}
		seen[code] = true
	}

	// 100 draws out of 32^6 collide with negligible probability.
	assert.Greater(t, len(seen), 95)
}

func TestCodeAlphabetSkipsAmbiguous(t *testing.T) {
	for _, c := range "0O1I" {
		assert.False(t, strings.ContainsRune(roomCodeAlphabet, c))
	}
}

func TestNewPlayerID(t *testing.T) {
	a := NewPlayerID()
	b := NewPlayerID()

	assert.True(t, strings.HasPrefix(a, "player_"))
	assert.NotEqual(t, a, b)
}
