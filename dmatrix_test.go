package xlearn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBatchLengthInvariant checks property 1 of spec §8: rows/Y/norm all
// share RowLength.
func TestBatchLengthInvariant(t *testing.T) {
	b := NewBatch()
	b.Reset(5, true)
	assert.Equal(t, int(b.RowLength), len(b.Rows))
	assert.Equal(t, int(b.RowLength), len(b.Y))
	assert.Equal(t, int(b.RowLength), len(b.Norm))
}

// TestBatchRoundTrip checks property 4: serialise/deserialise round-trips
// every field for a Batch with labels and at least one non-zero per row.
func TestBatchRoundTrip(t *testing.T) {
	b := NewBatch()
	b.Reset(3, true)
	b.SetHash(111, 222)
	b.AddNode(0, 1, 1.0, 0)
	b.AddNode(1, 2, 2.0, 0)
	b.AddNode(2, 3, 3.0, 0)
	b.Y[0], b.Y[1], b.Y[2] = 1, -1, 1
	b.Norm[0], b.Norm[1], b.Norm[2] = 1, 0.5, 0.25

	path := filepath.Join(t.TempDir(), "batch.bin")
	require.NoError(t, b.Serialize(path))

	got := NewBatch()
	require.NoError(t, got.Deserialize(path))

	assert.Equal(t, b.RowLength, got.RowLength)
	assert.Equal(t, b.HasLabel, got.HasLabel)
	assert.Equal(t, b.Hash1, got.Hash1)
	assert.Equal(t, b.Hash2, got.Hash2)
	assert.Equal(t, b.Y, got.Y)
	assert.Equal(t, b.Norm, got.Norm)
	require.Len(t, got.Rows, 3)
	for i := range b.Rows {
		assert.Equal(t, b.Rows[i].Nodes, got.Rows[i].Nodes)
	}
}

func TestBatchGetMiniBatch(t *testing.T) {
	b := NewBatch()
	b.Reset(5, true)
	for i := 0; i < 5; i++ {
		b.AddNode(i, uint32(i), 1.0, 0)
		b.Y[i] = float32(i)
	}

	mb := NewBatch()
	n := b.GetMiniBatch(2, mb)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{0, 1}, mb.Y)

	n = b.GetMiniBatch(2, mb)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{2, 3}, mb.Y)

	n = b.GetMiniBatch(2, mb)
	assert.Equal(t, 1, n)
	assert.Equal(t, []float32{4}, mb.Y)

	n = b.GetMiniBatch(2, mb)
	assert.Equal(t, 0, n)
}

func TestBatchCompressRenumbersDensely(t *testing.T) {
	b := NewBatch()
	b.Reset(2, false)
	b.AddNode(0, 100, 1, 0)
	b.AddNode(0, 50, 1, 0)
	b.AddNode(1, 100, 1, 0)

	list := b.Compress()
	assert.Equal(t, []uint32{50, 100}, list)
	assert.Equal(t, uint32(2), b.Rows[0].Nodes[0].FeatID)
	assert.Equal(t, uint32(1), b.Rows[0].Nodes[1].FeatID)
	assert.Equal(t, uint32(2), b.Rows[1].Nodes[0].FeatID)
}

func TestBatchCopyFromIsDeep(t *testing.T) {
	b := NewBatch()
	b.Reset(1, true)
	b.AddNode(0, 1, 1, 0)
	b.Y[0] = 1

	dup := NewBatch()
	dup.CopyFrom(b)
	dup.Rows[0].Nodes[0].Value = 99

	assert.Equal(t, float32(1), b.Rows[0].Nodes[0].Value)
	assert.NotSame(t, b.Rows[0], dup.Rows[0])
}

func TestBatchSerializeWritesToDisk(t *testing.T) {
	b := NewBatch()
	b.Reset(1, false)
	path := filepath.Join(t.TempDir(), "sub", "batch.bin")
	require.Error(t, b.Serialize(path)) // parent dir doesn't exist

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, b.Serialize(path))
}
