package xlearn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFingerprintStability checks property 6 of spec §8: the fingerprint
// is a pure function of the file's bytes, and changing any byte changes
// hash2.
func TestFingerprintStability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("+1 1:1.0 2:2.0\n-1 3:1.0\n"), 0o644))

	h1a, h2a, err := FileFingerprint(path)
	require.NoError(t, err)
	h1b, h2b, err := FileFingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, h1a, h1b)
	assert.Equal(t, h2a, h2b)

	require.NoError(t, os.WriteFile(path, []byte("+1 1:1.0 2:2.0\n-1 3:1.1\n"), 0o644))
	_, h2c, err := FileFingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, h2a, h2c)
}

func TestFingerprintSmallFileHash1EqualsHash2(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.txt")
	require.NoError(t, os.WriteFile(path, []byte("+1 1:1.0\n"), 0o644))

	h1, h2, err := FileFingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
