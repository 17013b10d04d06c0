package xlearn

// kernel_fm.go implements the factorization-machine score and gradient
// (spec §4.E "FM"). norm is folded into the interaction term's outer
// accumulator exactly once — the §9 design note flags multiplying it
// into s_d a second time as a known bug in the source not to replicate.

type fmKernel struct{}

func (fmKernel) CalcScore(row *SparseRow, m *Model, norm float32) float32 {
	score := m.Bias[0]
	kAligned := m.KAligned
	s := make([]float32, kAligned)
	q := make([]float32, kAligned)

	for _, n := range row.Nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		score += m.W[int(n.FeatID)*m.AuxSize] * n.Value
		base := int(n.FeatID) * kAligned * m.AuxSize
		for d := 0; d < kAligned; d += 4 {
			for l := 0; l < 4; l++ {
				vd := m.V[base+(d+l)*m.AuxSize] * n.Value
				s[d+l] += vd
				q[d+l] += vd * vd
			}
		}
	}

	var inter float32
	for d := 0; d < kAligned; d++ {
		inter += s[d]*s[d] - q[d]
	}
	score += norm * 0.5 * inter
	return score
}

func (fmKernel) CalcGrad(row *SparseRow, m *Model, pg float32, norm float32, hp *HyperParam) {
	optimStep(m.Bias, pg, hp)

	lambda := lambdaForUpdate(hp)
	sqrtNorm := sqrtF32(norm)
	kAligned := m.KAligned

	// s_d = Σ_i v[idx_i,d]·val_i, precomputed once per row (spec §4.E).
	s := make([]float32, kAligned)
	for _, n := range row.Nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		base := int(n.FeatID) * kAligned * m.AuxSize
		for d := 0; d < kAligned; d += 4 {
			for l := 0; l < 4; l++ {
				s[d+l] += m.V[base+(d+l)*m.AuxSize] * n.Value
			}
		}
	}

	for _, n := range row.Nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		// Linear term: updated exactly as in LR.
		off := int(n.FeatID) * m.AuxSize
		wSlot := m.W[off : off+m.AuxSize]
		gw := lambda*wSlot[0] + pg*n.Value*sqrtNorm
		optimStep(wSlot, gw, hp)

		// Latent term.
		base := int(n.FeatID) * kAligned * m.AuxSize
		for d := 0; d < kAligned; d += 4 {
			for l := 0; l < 4; l++ {
				vOff := base + (d+l)*m.AuxSize
				vSlot := m.V[vOff : vOff+m.AuxSize]
				vVal := vSlot[0] * n.Value
				grad := pg * n.Value * (s[d+l] - vVal)
				g := lambda*vSlot[0] + grad
				optimStep(vSlot, g, hp)
			}
		}
	}
}
