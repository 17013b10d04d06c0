package xlearn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestModelRoundTrip checks property 3 of spec §8: deserialising a
// serialised model reproduces every buffer byte-for-byte and every
// header token.
func TestModelRoundTrip(t *testing.T) {
	m := NewModel(FFM, CrossEntropy, AdaGrad, 5, 3, 4, 0.5)
	for i := range m.W {
		m.W[i] = float32(i) * 0.1
	}
	for i := range m.V {
		m.V[i] = float32(i) * 0.01
	}

	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, m.Serialize(path))

	got, err := DeserializeModel(path, AdaGrad)
	require.NoError(t, err)

	assert.Equal(t, m.Score, got.Score)
	assert.Equal(t, m.Loss, got.Loss)
	assert.Equal(t, m.NumFeatures, got.NumFeatures)
	assert.Equal(t, m.NumFields, got.NumFields)
	assert.Equal(t, m.K, got.K)
	assert.Equal(t, m.Bias, got.Bias)
	assert.Equal(t, m.W, got.W)
	assert.Equal(t, m.V, got.V)
}

func TestModelRejectsBadScoreFuncHeader(t *testing.T) {
	_, err := ParseScoreFunc("quadratic")
	assert.Error(t, err)
}

func TestModelZeroLatentTailInvariant(t *testing.T) {
	m := NewModel(FM, CrossEntropy, SGD, 2, 0, 5, 0.5) // k=5 -> kAligned=8
	require.Equal(t, 8, m.KAligned)
	for feat := 0; feat < m.NumFeatures; feat++ {
		base := feat * m.KAligned * m.AuxSize
		for d := m.K; d < m.KAligned; d++ {
			assert.Equal(t, float32(0), m.V[base+d*m.AuxSize])
		}
	}
}

func TestModelAuxSizeByOptimizer(t *testing.T) {
	assert.Equal(t, 1, SGD.AuxSize())
	assert.Equal(t, 2, AdaGrad.AuxSize())
	assert.Equal(t, 3, FTRL.AuxSize())
}

func TestModelAdaGradAccumulatorStartsAtOne(t *testing.T) {
	m := NewModel(Linear, CrossEntropy, AdaGrad, 3, 0, 0, 0.5)
	for base := 0; base < len(m.W); base += m.AuxSize {
		assert.Equal(t, float32(1.0), m.W[base+1])
	}
	assert.Equal(t, float32(1.0), m.Bias[1])
}

func TestModelSetBestAndShrink(t *testing.T) {
	m := NewModel(Linear, CrossEntropy, SGD, 2, 0, 0, 0.5)
	m.W[0] = 5
	m.SetBest()
	m.W[0] = 99
	m.Shrink()
	assert.Equal(t, float32(5), m.W[0])
}

func TestModelSerializeToVecRoundTrip(t *testing.T) {
	m := NewModel(FM, Squared, SGD, 3, 0, 2, 0.5)
	m.W[0] = 1.25
	v := m.SerializeToVec()

	m2 := NewModel(FM, Squared, SGD, 3, 0, 2, 0.5)
	require.NoError(t, m2.LoadFromVec(v))
	assert.Equal(t, m.W, m2.W)
	assert.Equal(t, m.V, m2.V)
}
