package xlearn

// optim.go implements the one-coordinate SGD/AdaGrad/FTRL update shared by
// every score kernel (spec §4.E). Each kernel computes the scalar
// gradient g for one parameter (bias slot, linear weight, or one lane of
// a latent vector) and hands it to optimStep; the recurrence itself does
// not know or care whether it is updating a bias, a linear weight or a
// factorization-machine latent coordinate.

// optimStep mutates slot (length hp.AuxSize(), slot[0] the parameter
// value) in place given external gradient g.
func optimStep(slot []float32, g float32, hp *HyperParam) {
	switch hp.Optim {
	case SGD:
		slot[0] -= float32(hp.LearnRate) * g
	case AdaGrad:
		n := slot[1] + g*g
		slot[1] = n
		slot[0] -= float32(hp.LearnRate) * g * invSqrt(n)
	case FTRL:
		w := slot[0]
		oldN := slot[1]
		n := oldN + g*g
		slot[1] = n
		alpha := float32(hp.Alpha)
		sigma := (sqrtF32(n) - sqrtF32(oldN)) / alpha
		z := slot[2] + g - sigma*w
		slot[2] = z
		lambda1 := float32(hp.Lambda1)
		lambda2 := float32(hp.Lambda2)
		beta := float32(hp.Beta)
		if absF32(z) <= lambda1 {
			slot[0] = 0
		} else {
			slot[0] = (signF32(z)*lambda1 - z) / ((beta+sqrtF32(n))/alpha + lambda2)
		}
	}
}

// lambdaForUpdate returns the L2 coefficient the gradient formula uses:
// spec §4.E writes it as λ for SGD/AdaGrad and λ₂ for FTRL — both are
// hp.L2Lambda for SGD/AdaGrad, and hp.Lambda2 for FTRL.
func lambdaForUpdate(hp *HyperParam) float32 {
	if hp.Optim == FTRL {
		return float32(hp.Lambda2)
	}
	return float32(hp.L2Lambda)
}
