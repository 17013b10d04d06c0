package xlearn

// kernel_linear.go implements LR: score = bias + Σ w[idx_i]·val_i
// (spec §4.E "Linear (LR)").

type linearKernel struct{}

func (linearKernel) CalcScore(row *SparseRow, m *Model, norm float32) float32 {
	score := m.Bias[0]
	for _, n := range row.Nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		w := m.W[int(n.FeatID)*m.AuxSize]
		score += w * n.Value
	}
	return score
}

func (linearKernel) CalcGrad(row *SparseRow, m *Model, pg float32, norm float32, hp *HyperParam) {
	// Bias: g = pg (no L2 term, val=1, norm=1 per spec).
	optimStep(m.Bias, pg, hp)

	lambda := lambdaForUpdate(hp)
	sqrtNorm := sqrtF32(norm)
	for _, n := range row.Nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		off := int(n.FeatID) * m.AuxSize
		slot := m.W[off : off+m.AuxSize]
		g := lambda*slot[0] + pg*n.Value*sqrtNorm
		optimStep(slot, g, hp)
	}
}
