package xlearn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseRowAddAndLen(t *testing.T) {
	r := NewSparseRow()
	require.Equal(t, 0, r.Len())
	r.Add(0, 3, 1.5)
	r.Add(1, 7, -2.0)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, uint32(7), r.MaxFeat())
	assert.Equal(t, uint32(1), r.MaxField())
}

func TestSparseRowSquaredNorm(t *testing.T) {
	r := &SparseRow{Nodes: []Node{{FeatID: 1, Value: 3}, {FeatID: 2, Value: 4}}}
	assert.InDelta(t, 25.0, r.SquaredNorm(), 1e-9)
}

func TestSparseRowCloneIsIndependent(t *testing.T) {
	r := &SparseRow{Nodes: []Node{{FeatID: 1, Value: 1}}}
	c := r.Clone()
	c.Nodes[0].Value = 99
	assert.Equal(t, float32(1), r.Nodes[0].Value)
}

func TestSparseRowLenNilSafe(t *testing.T) {
	var r *SparseRow
	assert.Equal(t, 0, r.Len())
}
