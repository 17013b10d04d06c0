package xlearn

import "math"

// simd.go provides the scalar math helpers (inverse square root, square
// root, sign, absolute value) used by the optimiser and the kernels. Go
// has no portable SIMD intrinsic without cgo or per-arch assembly; the
// 4-lane-unrolled loops over the k_aligned factor axis are written inline
// in kernel_fm.go and kernel_ffm.go (dotStrided), not here.

// FastInvSqrt is the Quake III fast inverse square root, magic constant
// 0x5f375a86 (spec §9). No option in the package selects it: every
// kernel and optimStep call invSqrt below, which uses the standard
// library, and fastOrExactInvSqrt has no caller.
func FastInvSqrt(x float32) float32 {
	if x <= 0 {
		return 0
	}
	i := math.Float32bits(x)
	i = 0x5f375a86 - (i >> 1)
	y := math.Float32frombits(i)
	y = y * (1.5 - 0.5*x*y*y) // one Newton iteration
	return y
}

// invSqrt is 1/sqrt(x), used to fold AdaGrad's epsilon-free rsqrt into
// the accumulator update. Returns 0 for x<=0 rather than +Inf/NaN so a
// parameter that has never been touched (accumulator still at its 1.0
// floor, see model.go) never produces a non-finite update.
func invSqrt(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(1 / math.Sqrt(float64(x)))
}

func fastOrExactInvSqrt(x float32, fast bool) float32 {
	if fast {
		return FastInvSqrt(x)
	}
	return invSqrt(x)
}

func sqrtF32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}

func signF32(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func absF32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
