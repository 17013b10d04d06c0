package xlearn

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitFilePreservesContentByteForByte checks spec §8 property 5:
// concatenating the k parts in order reproduces the original file
// byte-for-byte, and each part but possibly the last ends in \n.
func TestSplitFilePreservesContentByteForByte(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt")

	var content []byte
	for i := 0; i < 17; i++ {
		content = append(content, []byte("+1 "+strconv.Itoa(i)+":1.0\n")...)
	}
	require.NoError(t, os.WriteFile(src, content, 0o644))

	k := 4
	parts := make([]string, k)
	for i := range parts {
		parts[i] = filepath.Join(dir, "part-"+strconv.Itoa(i))
	}
	require.NoError(t, SplitFile(src, k, parts))

	var rebuilt []byte
	for i, p := range parts {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		if i < k-1 {
			require.True(t, len(b) == 0 || b[len(b)-1] == '\n')
		}
		rebuilt = append(rebuilt, b...)
	}
	assert.Equal(t, content, rebuilt)
}

func TestFoldFilesConcatenatesAllButOne(t *testing.T) {
	dir := t.TempDir()
	parts := make([]string, 3)
	for i := range parts {
		parts[i] = filepath.Join(dir, "part-"+strconv.Itoa(i))
		require.NoError(t, os.WriteFile(parts[i], []byte("line"+strconv.Itoa(i)+"\n"), 0o644))
	}
	trains := make([]string, 3)
	for i := range trains {
		trains[i] = filepath.Join(dir, "train-"+strconv.Itoa(i))
	}
	require.NoError(t, FoldFiles(parts, trains))

	got, err := os.ReadFile(trains[0])
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(got))
}

func TestSplitFileRejectsMismatchedOutPaths(t *testing.T) {
	err := SplitFile("whatever", 3, []string{"only-one"})
	assert.Error(t, err)
}
