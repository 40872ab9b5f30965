package proc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageAccess(t *testing.T) {
	m := NewImage()
	require.NoError(t, m.Map(0x2000, make([]byte, 0x100)))
	require.NoError(t, m.Map(0x1000, make([]byte, 0x100)))

	n, err := m.WriteMemory(0x10f0, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	_, err = m.ReadMemory(buf, 0x10f0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	// Accesses may not span segments or leave them.
	_, err = m.ReadMemory(make([]byte, 0x20), 0x10f0)
	assert.ErrorIs(t, err, ErrUnmapped)
	_, err = m.WriteMemory(0x3000, []byte{1})
	assert.ErrorIs(t, err, ErrUnmapped)
}

func TestImageOverlap(t *testing.T) {
	m := NewImage()
	require.NoError(t, m.Map(0x1000, make([]byte, 0x100)))
	assert.Error(t, m.Map(0x10ff, make([]byte, 2)))
	assert.NoError(t, m.Map(0x1100, make([]byte, 2)))
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xaa, 0xbb}, 0600))

	m, err := LoadImage(path, 0x80000000)
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = m.ReadMemory(buf, 0x80000000)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb}, buf)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
}
