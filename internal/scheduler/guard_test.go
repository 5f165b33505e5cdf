package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_ClaimOnce(t *testing.T) {
	g := NewGuard()

	assert.False(t, g.Claimed("m1"))
	assert.True(t, g.Claim("m1"))
	assert.True(t, g.Claimed("m1"))
	assert.False(t, g.Claim("m1")) // second claim loses
}

func TestGuard_Release(t *testing.T) {
	g := NewGuard()

	g.Claim("m1")
	g.Release("m1")
	assert.False(t, g.Claimed("m1"))
	assert.True(t, g.Claim("m1"))

	g.Release("never-claimed") // no-op
}

func TestGuard_ConcurrentClaims_ExactlyOneWins(t *testing.T) {
	g := NewGuard()

	const n = 32
	wins := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- g.Claim("m1")
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	assert.Equal(t, 1, won)
}
