package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		UCTConstant:        1.4,
		ExpansionThreshold: 0,
		MemoryBudget:       1 << 20,
		Threads:            1,
	}
}

func TestIsValidAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().IsValid())
}

func TestIsValidRejectsNegativeExpansionThreshold(t *testing.T) {
	c := validConfig()
	c.ExpansionThreshold = -1
	assert.Error(t, c.IsValid())
}

func TestIsValidRejectsNegativeRaveEquivalence(t *testing.T) {
	c := validConfig()
	c.RaveEnabled = true
	c.RaveEquivalence = -1
	assert.Error(t, c.IsValid())
}

func TestIsValidRejectsNegativePruneStart(t *testing.T) {
	c := validConfig()
	c.PruneEnabled = true
	c.PruneStart = -1
	assert.Error(t, c.IsValid())
}

func TestIsValidRejectsNonPositiveMemoryBudget(t *testing.T) {
	c := validConfig()
	c.MemoryBudget = 0
	assert.Error(t, c.IsValid())
}

func TestIsValidRejectsNonPositiveThreads(t *testing.T) {
	c := validConfig()
	c.Threads = 0
	assert.Error(t, c.IsValid())
}

func TestReuseCompatibleIgnoresProgressAndDebug(t *testing.T) {
	a := validConfig()
	b := validConfig()
	a.Debug = true
	b.Progress = func(_, _ time.Duration) {}
	assert.True(t, a.reuseCompatible(b))
}

func TestReuseCompatibleNoticesThreadCount(t *testing.T) {
	a := validConfig()
	b := validConfig()
	b.Threads = 2
	assert.False(t, a.reuseCompatible(b))
}

func TestReuseCompatibleNoticesRaveEquivalence(t *testing.T) {
	a := validConfig()
	a.RaveEnabled = true
	a.RaveEquivalence = 100
	b := a
	b.RaveEquivalence = 200
	assert.False(t, a.reuseCompatible(b))
}

func TestDefaultThreadsWithinBounds(t *testing.T) {
	n := DefaultThreads()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 8)
}
