package xlearn

// kernel_ffm.go implements the field-aware factorization-machine score
// and gradient (spec §4.E "FFM"). The inner loop is a double scan over
// the row's non-zeros; norm multiplies each pairwise term once, matching
// the gradient's single explicit norm factor.

type ffmKernel struct{}

func (m *Model) ffmIndex(feat, field uint32) int {
	return int(feat)*m.NumFields*m.KAligned*m.AuxSize + int(field)*m.KAligned*m.AuxSize
}

func (ffmKernel) CalcScore(row *SparseRow, m *Model, norm float32) float32 {
	score := m.Bias[0]
	nodes := row.Nodes
	for _, n := range nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		score += m.W[int(n.FeatID)*m.AuxSize] * n.Value
	}

	var inter float32
	for i := 0; i < len(nodes); i++ {
		ni := nodes[i]
		if int(ni.FeatID) >= m.NumFeatures || int(ni.FieldID) >= m.NumFields {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			nj := nodes[j]
			if int(nj.FeatID) >= m.NumFeatures || int(nj.FieldID) >= m.NumFields {
				continue
			}
			baseI := m.ffmIndex(ni.FeatID, nj.FieldID)
			baseJ := m.ffmIndex(nj.FeatID, ni.FieldID)
			dot := dotStrided(m.V, baseI, baseJ, m.KAligned, m.AuxSize)
			inter += dot * ni.Value * nj.Value
		}
	}
	return score + inter*norm
}

// dotStrided walks two k_aligned latent vectors 4 lanes at a time,
// honoring the aux-size stride between consecutive factor lanes (the
// latent buffer interleaves each factor's optimiser aux slots).
func dotStrided(v []float32, baseA, baseB, kAligned, auxSize int) float32 {
	var sum float32
	for d := 0; d < kAligned; d += 4 {
		for l := 0; l < 4; l++ {
			sum += v[baseA+(d+l)*auxSize] * v[baseB+(d+l)*auxSize]
		}
	}
	return sum
}

func (ffmKernel) CalcGrad(row *SparseRow, m *Model, pg float32, norm float32, hp *HyperParam) {
	optimStep(m.Bias, pg, hp)

	lambda := lambdaForUpdate(hp)
	sqrtNorm := sqrtF32(norm)
	nodes := row.Nodes

	for _, n := range nodes {
		if int(n.FeatID) >= m.NumFeatures {
			continue
		}
		off := int(n.FeatID) * m.AuxSize
		wSlot := m.W[off : off+m.AuxSize]
		g := lambda*wSlot[0] + pg*n.Value*sqrtNorm
		optimStep(wSlot, g, hp)
	}

	for i := 0; i < len(nodes); i++ {
		ni := nodes[i]
		if int(ni.FeatID) >= m.NumFeatures || int(ni.FieldID) >= m.NumFields {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			nj := nodes[j]
			if int(nj.FeatID) >= m.NumFeatures || int(nj.FieldID) >= m.NumFields {
				continue
			}
			baseI := m.ffmIndex(ni.FeatID, nj.FieldID)
			baseJ := m.ffmIndex(nj.FeatID, ni.FieldID)
			coef := pg * ni.Value * nj.Value * norm

			for d := 0; d < m.KAligned; d += 4 {
				for l := 0; l < 4; l++ {
					iOff := baseI + (d+l)*m.AuxSize
					jOff := baseJ + (d+l)*m.AuxSize
					iSlot := m.V[iOff : iOff+m.AuxSize]
					jSlot := m.V[jOff : jOff+m.AuxSize]
					vjD := jSlot[0]
					viD := iSlot[0]

					gi := lambda*iSlot[0] + coef*vjD
					gj := lambda*jSlot[0] + coef*viD
					optimStep(iSlot, gi, hp)
					optimStep(jSlot, gj, hp)
				}
			}
		}
	}
}
