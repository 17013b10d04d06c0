package xlearn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestOptimStepSGDExactMatch checks spec §8 property 9 (single
// coordinate, quadratic loss, SGD): one step computes
// w - lr*(lambda*w + pg*val) exactly, matching the gradient this repo's
// L2Lambda convention produces (see DESIGN.md's L2 coefficient note).
func TestOptimStepSGDExactMatch(t *testing.T) {
	hp := &HyperParam{Optim: SGD, LearnRate: 0.1, L2Lambda: 0.01}
	w := float32(2.0)
	pg := float32(0.5)
	val := float32(3.0)

	g := float32(hp.L2Lambda)*w + pg*val
	want := w - float32(hp.LearnRate)*g

	slot := []float32{w}
	optimStep(slot, g, hp)
	assert.InDelta(t, float64(want), float64(slot[0]), 1e-6)
}

func TestOptimStepAdaGradAccumulates(t *testing.T) {
	hp := &HyperParam{Optim: AdaGrad, LearnRate: 0.1}
	slot := []float32{0, 1.0} // accumulator starts at 1.0
	optimStep(slot, 2.0, hp)
	wantAcc := float32(1.0 + 4.0)
	assert.InDelta(t, float64(wantAcc), float64(slot[1]), 1e-6)
	wantW := float32(0) - 0.1*2.0*invSqrt(wantAcc)
	assert.InDelta(t, float64(wantW), float64(slot[0]), 1e-6)
}

func TestOptimStepFTRLZeroesBelowL1Threshold(t *testing.T) {
	hp := &HyperParam{Optim: FTRL, Alpha: 1, Beta: 1, Lambda1: 10, Lambda2: 0}
	slot := []float32{0, 0, 0}
	optimStep(slot, 0.1, hp)
	assert.Equal(t, float32(0), slot[0])
}
