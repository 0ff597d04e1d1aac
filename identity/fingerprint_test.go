package identity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomIsSeedStable(t *testing.T) {
	a := Random(rand.New(rand.NewSource(7)))
	b := Random(rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}

func TestRandomIsCoherent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		fp := Random(rng)
		assert.NotEmpty(t, fp.UserAgent)
		assert.Greater(t, fp.ViewportWidth, fp.ViewportHeight)
		assert.Equal(t, "es-ES", fp.Locale)
		assert.Equal(t, "Europe/Madrid", fp.TimezoneID)
	}
}
