package xlearn

// kernel.go defines the common score/gradient contract every model family
// implements (spec §4.E).

// ScoreKernel computes a row's score and applies one gradient step to the
// model it was scored against. The linear and FFM kernels do not
// allocate; the FM kernel allocates two k_aligned-length scratch slices
// per CalcScore call and one per CalcGrad call. Implementations silently
// skip any feature/field id outside the model's bounds
// so a test file may reference ids unseen at train time (spec §4.E
// "Unseen features during inference").
type ScoreKernel interface {
	// CalcScore returns bias + linear + (for FM/FFM) interaction terms
	// for row, with norm already folded in where the model family
	// requires it.
	CalcScore(row *SparseRow, m *Model, norm float32) float32

	// CalcGrad applies one SGD/AdaGrad/FTRL step to m in place. pg is
	// the scalar partial derivative of the loss with respect to the
	// score, supplied by the Loss.
	CalcGrad(row *SparseRow, m *Model, pg float32, norm float32, hp *HyperParam)
}

// NewScoreKernel returns the kernel matching score.
func NewScoreKernel(score ScoreFunc) ScoreKernel {
	switch score {
	case FM:
		return fmKernel{}
	case FFM:
		return ffmKernel{}
	default:
		return linearKernel{}
	}
}
