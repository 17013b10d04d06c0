package xlearn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.libsvm")
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInMemoryReaderYieldsAllRowsAcrossBatches(t *testing.T) {
	path := writeTestFile(t, "+1 1:1.0", "-1 2:1.0", "+1 3:1.0", "-1 4:1.0", "+1 5:1.0")
	r := NewInMemoryReader(path, 2, false)
	r.Shuffle = false
	require.NoError(t, r.Init())

	var total int
	mb := NewBatch()
	for r.NextBatch(mb) {
		total += int(mb.RowLength)
	}
	assert.Equal(t, 5, total)
}

func TestInMemoryReaderResetRewinds(t *testing.T) {
	path := writeTestFile(t, "+1 1:1.0", "-1 2:1.0")
	r := NewInMemoryReader(path, 10, false)
	r.Shuffle = false
	require.NoError(t, r.Init())

	mb := NewBatch()
	require.True(t, r.NextBatch(mb))
	assert.False(t, r.NextBatch(mb))

	require.NoError(t, r.Reset())
	require.True(t, r.NextBatch(mb))
	assert.Equal(t, uint32(2), mb.RowLength)
}

func TestOnDiskReaderStreamsInBlocks(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "+1 1:1.0 2:1.0")
	}
	path := writeTestFile(t, lines...)

	r := NewOnDiskReader(path, 1, false)
	require.NoError(t, r.Init())
	defer r.Close()

	var total int
	mb := NewBatch()
	for r.NextBatch(mb) {
		total += int(mb.RowLength)
	}
	assert.Equal(t, 200, total)
}

// TestBinaryCacheHit checks spec §8 scenario S4: a second InMemoryReader
// over the same path reuses the .bin cache written by the first.
func TestBinaryCacheHit(t *testing.T) {
	path := writeTestFile(t, "+1 1:1.0", "-1 2:1.0", "+1 3:1.0")

	r1 := NewInMemoryReader(path, 10, false)
	require.NoError(t, r1.Init())

	cachePath := path + ".bin"
	info1, err := os.Stat(cachePath)
	require.NoError(t, err)

	r2 := NewInMemoryReader(path, 10, false)
	require.NoError(t, r2.Init())
	info2, statErr := os.Stat(cachePath)
	require.NoError(t, statErr)
	assert.Equal(t, info1.ModTime(), info2.ModTime())

	assert.Equal(t, r1.full.RowLength, r2.full.RowLength)
	assert.Equal(t, r1.full.Y, r2.full.Y)
}

func TestFromMatrixReaderStreamsProvidedBatch(t *testing.T) {
	b := NewBatch()
	b.Reset(3, true)
	b.Y[0], b.Y[1], b.Y[2] = 1, -1, 1

	r := NewFromMatrixReader(b, 2)
	r.Shuffle = false
	require.NoError(t, r.Init())

	var total int
	mb := NewBatch()
	for r.NextBatch(mb) {
		total += int(mb.RowLength)
	}
	assert.Equal(t, 3, total)
}
