// Package noise generates Dirichlet root-exploration noise, used to
// perturb the domain's initial child priors at the root so that a search
// does not collapse onto the same move every time it revisits an identical
// position (a standard AlphaZero-style robustness trick).
//
// Grounded verbatim on the teacher's (github.com/alphabeth) mcts/tree.go
// New(), which builds a symmetric Dirichlet(alpha, alpha, ...) over the
// game's ActionSpace using gonum's distmv.Dirichlet seeded from
// golang.org/x/exp/rand, and samples it once per MCTS instance.
package noise

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distmv"
)

// DefaultAlpha mirrors the teacher's unexported dirichletParam constant.
const DefaultAlpha = 0.3

// Sampler draws Dirichlet noise vectors over a fixed-size action space.
type Sampler struct {
	dist *distmv.Dirichlet
	size int
}

// NewSampler builds a Sampler for the given action space size and
// concentration parameter alpha, seeded from seed (pass a fresh seed, e.g.
// derived from time.Now().UnixNano(), for production use; a fixed seed for
// deterministic-mode tests).
func NewSampler(actionSpace int, alpha float64, seed uint64) *Sampler {
	if actionSpace <= 0 {
		return &Sampler{size: 0}
	}
	params := make([]float64, actionSpace)
	for i := range params {
		params[i] = alpha
	}
	return &Sampler{
		dist: distmv.NewDirichlet(params, rand.NewSource(seed)),
		size: actionSpace,
	}
}

// Sample draws one noise vector of length actionSpace, summing to 1.
func (s *Sampler) Sample() []float64 {
	if s.size == 0 {
		return nil
	}
	return s.dist.Rand(nil)
}

// Blend mixes domain priors with root noise: (1-eps)*prior + eps*noise,
// the standard AlphaZero root-noise blend. The result is written into priors
// in place; if noiseVec is shorter than priors, the priors past its end are
// left unchanged.
func Blend(priors []float32, noiseVec []float64, eps float32) {
	for i := range priors {
		if i >= len(noiseVec) {
			break
		}
		priors[i] = (1-eps)*priors[i] + eps*float32(noiseVec[i])
	}
}
