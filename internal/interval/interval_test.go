package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicFixedK(t *testing.T) {
	calls := 0
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	c := New(func() bool { calls++; return true }, clock, time.Second, true, 4)

	for i := 0; i < 16; i++ {
		c.Check()
		now = now.Add(time.Millisecond)
	}
	// fixedK=4 => expensive predicate runs on calls 4, 8, 12, 16 (1-indexed
	// within each window): every 4th Check call, i.e. 4 times over 16 calls.
	assert.Equal(t, 4, calls)
}

func TestAdaptiveRetuneGrowsK(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	c := New(func() bool { return false }, clock, time.Second, false, 1)

	// Each Check call advances the clock by far less than the target
	// interval, so k should grow from its initial 1.
	for i := 0; i < 50; i++ {
		c.Check()
		now = now.Add(time.Microsecond)
	}
	assert.Greater(t, c.k, int64(1))
}
