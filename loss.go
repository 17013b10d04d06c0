package xlearn

import "math"

// loss.go implements the training objective: cross-entropy for
// classification, squared error for regression (spec §4.F). Both share
// the same predict/gradient-pass shape; only the link function and the
// partial derivative of the loss with respect to the score differ.

// Loss drives one pass (training or evaluation) over a Batch against a
// Model through a ScoreKernel.
type Loss interface {
	// Predict returns the link-transformed score for row (sigmoid for
	// cross-entropy, identity for squared error).
	Predict(row *SparseRow, m *Model, kernel ScoreKernel, norm float32) float32

	// Evaluate returns the mean loss over b without mutating m.
	Evaluate(b *Batch, m *Model, kernel ScoreKernel) float32

	// Train runs one gradient pass over b, updating m in place. When
	// hp.LockFree is true, rows are assumed to be processed by a worker
	// pool issuing unsynchronised updates (Hogwild-style); Train itself
	// is always sequential over the slice it's given — lock-freedom is a
	// property of how the caller partitions b across workers, not of
	// this loop (spec §4.F, §9 design note "true Hogwild: no locks, no
	// atomics, races on shared weights are accepted").
	Train(b *Batch, m *Model, kernel ScoreKernel, hp *HyperParam)
}

// NewLoss returns the Loss matching kind.
func NewLoss(kind LossFunc) Loss {
	if kind == Squared {
		return squaredLoss{}
	}
	return crossEntropyLoss{}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// --- cross-entropy ---------------------------------------------------

type crossEntropyLoss struct{}

func (crossEntropyLoss) Predict(row *SparseRow, m *Model, kernel ScoreKernel, norm float32) float32 {
	return sigmoid(kernel.CalcScore(row, m, norm))
}

func (l crossEntropyLoss) Evaluate(b *Batch, m *Model, kernel ScoreKernel) float32 {
	var sum float32
	for i := 0; i < int(b.RowLength); i++ {
		row := b.Rows[i]
		if row == nil {
			row = emptyRow
		}
		pred := l.Predict(row, m, kernel, b.Norm[i])
		sum += crossEntropyTerm(pred, b.Y[i])
	}
	if b.RowLength == 0 {
		return 0
	}
	return sum / float32(b.RowLength)
}

// crossEntropyTerm is -[y log(p) + (1-y) log(1-p)], clamped away from
// 0/1 so a perfectly confident wrong prediction doesn't produce +Inf.
func crossEntropyTerm(pred, y float32) float32 {
	const eps = 1e-7
	p := pred
	if p < eps {
		p = eps
	} else if p > 1-eps {
		p = 1 - eps
	}
	if y > 0 {
		return float32(-math.Log(float64(p)))
	}
	return float32(-math.Log(float64(1 - p)))
}

func (crossEntropyLoss) Train(b *Batch, m *Model, kernel ScoreKernel, hp *HyperParam) {
	for i := 0; i < int(b.RowLength); i++ {
		row := b.Rows[i]
		if row == nil {
			row = emptyRow
		}
		norm := b.Norm[i]
		score := kernel.CalcScore(row, m, norm)
		y := float32(1)
		if b.Y[i] <= 0 {
			y = -1
		}
		pg := -y / (1 + float32(math.Exp(float64(y*score)))) // ∂L/∂score, y mapped to ±1
		kernel.CalcGrad(row, m, pg, norm, hp)
	}
}

// --- squared error -----------------------------------------------------

type squaredLoss struct{}

func (squaredLoss) Predict(row *SparseRow, m *Model, kernel ScoreKernel, norm float32) float32 {
	return kernel.CalcScore(row, m, norm)
}

func (l squaredLoss) Evaluate(b *Batch, m *Model, kernel ScoreKernel) float32 {
	var sum float32
	for i := 0; i < int(b.RowLength); i++ {
		row := b.Rows[i]
		if row == nil {
			row = emptyRow
		}
		pred := l.Predict(row, m, kernel, b.Norm[i])
		d := pred - b.Y[i]
		sum += d * d
	}
	if b.RowLength == 0 {
		return 0
	}
	return sum / float32(b.RowLength)
}

func (squaredLoss) Train(b *Batch, m *Model, kernel ScoreKernel, hp *HyperParam) {
	for i := 0; i < int(b.RowLength); i++ {
		row := b.Rows[i]
		if row == nil {
			row = emptyRow
		}
		norm := b.Norm[i]
		pred := kernel.CalcScore(row, m, norm)
		pg := pred - b.Y[i] // ∂L/∂score for squared error
		kernel.CalcGrad(row, m, pg, norm, hp)
	}
}

// emptyRow stands in for a nil Row (an all-zero line) so kernels never
// need a nil check of their own.
var emptyRow = &SparseRow{}
