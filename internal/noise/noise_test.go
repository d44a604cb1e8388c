package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleSumsToOne(t *testing.T) {
	s := NewSampler(5, DefaultAlpha, 42)
	sample := s.Sample()
	require := assert.New(t)
	require.Len(sample, 5)
	var sum float64
	for _, v := range sample {
		require.GreaterOrEqual(v, 0.0)
		sum += v
	}
	require.InDelta(1.0, sum, 1e-6)
}

func TestSampleZeroSizeIsNil(t *testing.T) {
	s := NewSampler(0, DefaultAlpha, 1)
	assert.Nil(t, s.Sample())
}

func TestBlendMixesPriorAndNoise(t *testing.T) {
	priors := []float32{1, 1}
	noiseVec := []float64{0, 1}
	Blend(priors, noiseVec, 0.25)
	assert.InDelta(t, 0.75, priors[0], 1e-6)
	assert.InDelta(t, 1.0, priors[1], 1e-6)
}

func TestBlendStopsAtShorterNoiseVector(t *testing.T) {
	priors := []float32{1, 1, 1}
	noiseVec := []float64{0}
	Blend(priors, noiseVec, 0.5)
	assert.InDelta(t, 0.5, priors[0], 1e-6)
	assert.Equal(t, float32(1), priors[1])
	assert.Equal(t, float32(1), priors[2])
}
