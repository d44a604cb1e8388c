package bias

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestUnvisitedChildWinsTies(t *testing.T) {
	c := New(1.0, 10)
	assert.True(t, math32.IsInf(c.Term(0), 1))
}

func TestTermDecreasesWithChildVisits(t *testing.T) {
	c := New(1.4, 100)
	lo := c.Term(1)
	hi := c.Term(50)
	assert.Greater(t, lo, hi)
}

func TestZeroParentVisitsIsZeroTerm(t *testing.T) {
	c := New(1.0, 0)
	assert.Equal(t, float32(0), c.Term(5))
}
