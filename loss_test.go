package xlearn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossEntropyPredictIsSigmoid(t *testing.T) {
	m := NewModel(Linear, CrossEntropy, SGD, 1, 0, 0, 0.5)
	m.Bias[0] = 0
	loss := NewLoss(CrossEntropy)
	row := &SparseRow{}
	assert.InDelta(t, 0.5, float64(loss.Predict(row, m, linearKernel{}, 1)), 1e-6)
}

func TestSquaredPredictIsIdentity(t *testing.T) {
	m := NewModel(Linear, Squared, SGD, 1, 0, 0, 0.5)
	m.Bias[0] = 2.5
	loss := NewLoss(Squared)
	row := &SparseRow{}
	assert.InDelta(t, 2.5, float64(loss.Predict(row, m, linearKernel{}, 1)), 1e-6)
}

func TestCrossEntropyTrainMovesPredictionTowardLabel(t *testing.T) {
	m := NewModel(Linear, CrossEntropy, SGD, 1, 0, 0, 0.5)
	hp := &HyperParam{Optim: SGD, LearnRate: 0.5, L2Lambda: 0}
	kernel := linearKernel{}
	loss := crossEntropyLoss{}

	b := NewBatch()
	b.Reset(1, true)
	b.AddNode(0, 0, 1, 0)
	b.Y[0] = 1
	b.Norm[0] = 1

	before := loss.Predict(b.Rows[0], m, kernel, 1)
	loss.Train(b, m, kernel, hp)
	after := loss.Predict(b.Rows[0], m, kernel, 1)
	assert.Greater(t, after, before)
}

func TestSquaredEvaluateMeanSquaredError(t *testing.T) {
	m := NewModel(Linear, Squared, SGD, 1, 0, 0, 0.5)
	m.Bias[0] = 1
	loss := squaredLoss{}

	b := NewBatch()
	b.Reset(2, true)
	b.Y[0], b.Y[1] = 0, 3
	b.Norm[0], b.Norm[1] = 1, 1

	got := loss.Evaluate(b, m, linearKernel{})
	// predictions both = 1 (bias only, no nodes): errors are 1 and -2.
	want := float32((1*1 + 2*2)) / 2
	assert.InDelta(t, float64(want), float64(got), 1e-6)
}

// TestSquaredTrainGradientIsUndoubled checks spec §4.F's literal
// "Squared: pg = pred - y" (no factor of 2): one SGD step on a single
// feature must match w - lr*(lambda*w + pg*val*sqrt(norm)) with
// pg = pred-y exactly, not 2*(pred-y).
func TestSquaredTrainGradientIsUndoubled(t *testing.T) {
	m := NewModel(Linear, Squared, SGD, 1, 0, 0, 0.5)
	hp := &HyperParam{Optim: SGD, LearnRate: 0.1, L2Lambda: 0}
	kernel := linearKernel{}
	loss := squaredLoss{}

	b := NewBatch()
	b.Reset(1, true)
	b.AddNode(0, 0, 2, 0)
	b.Y[0] = 3
	b.Norm[0] = 1

	loss.Train(b, m, kernel, hp)

	// pred starts at 0 (zero-initialized model), so pg = 0-3 = -3,
	// g = pg*val = -6, w_new = 0 - 0.1*(-6) = 0.6.
	assert.InDelta(t, 0.6, float64(m.W[0]), 1e-6)
}
