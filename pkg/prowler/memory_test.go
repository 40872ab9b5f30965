package prowler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maps = `55d0c8a00000-55d0c8c00000 r-xp 00000000 fd:01 1311042                    /usr/bin/pcsx2-qt
7f2a40000000-7f2a42000000 rw-p 00000000 00:00 0 
7f2a50000000-7f2a58000000 rw-p 00000000 00:00 0 
7f2a60000000-7f2a60021000 rw-p 00000000 00:00 0                          [heap]
7f2a70000000-7f2a72000000 rw-s 00000000 00:01 4096                       /memfd:eemem (deleted)
`

func TestParseMaps(t *testing.T) {
	regions := parseMaps(maps)
	require.Len(t, regions, 5)

	assert.Equal(t, uint64(0x55d0c8a00000), regions[0].Start)
	assert.Equal(t, "r-xp", regions[0].Perms)
	assert.Equal(t, uint64(1311042), regions[0].Inode)
	assert.Equal(t, "/usr/bin/pcsx2-qt", regions[0].Path)
	assert.Equal(t, uint64(0x2000000), regions[1].Size())
	assert.Equal(t, "/memfd:eemem (deleted)", regions[4].Path)
}

func TestFindGuestMemory(t *testing.T) {
	regions := parseMaps(maps)

	addr, err := findGuestMemory(regions, 0x2000000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7f2a40000000), addr)

	addr, err = findGuestMemory(regions, 0x4000000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7f2a50000000), addr)

	_, err = findGuestMemory(regions, 0x10000000)
	assert.Error(t, err)
}

func TestNewProwlerRejectsInvalidPid(t *testing.T) {
	_, err := NewProwler(0)
	assert.Error(t, err)
}
