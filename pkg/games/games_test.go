package games

import (
	"emupatch/pkg/offset"
	"emupatch/pkg/proc"
	"emupatch/pkg/ram"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesAreWellFormed(t *testing.T) {
	vs := Registry().Versions()
	require.Len(t, vs, 3)

	for _, v := range vs {
		assert.NoError(t, v.Validate(), v.ID)
		assert.Equal(t, SignatureWidth, v.Signature.Len(), v.ID)
		assert.Equal(t, []int{6, 7, 8, 9}, v.Signature.Wildcards(), v.ID)
		assert.NotZero(t, v.Base, v.ID)
	}
}

func TestSignaturesAreDistinct(t *testing.T) {
	vs := Registry().Versions()
	for i, a := range vs {
		for j, b := range vs {
			if i != j {
				assert.False(t, a.Signature.Match(b.Signature.Fill(0)), "%s matches %s", a.ID, b.ID)
			}
		}
	}
}

func TestDetect(t *testing.T) {
	for _, v := range Registry().Versions() {
		img := proc.NewImage()
		data := make([]byte, 0x00400000)
		copy(data[v.Base:], v.Signature.Fill(0x12))
		require.NoError(t, img.Map(0, data))

		table, err := Registry().Detect(ram.New(img, 0))
		require.NoError(t, err)
		assert.Equal(t, v.ID, table.Version())
		assert.Equal(t, uint32(0x0017ff00), table.MustGet(Scratch))

		_, hasTrampoline := table.Trampoline()
		assert.Equal(t, v.Trampoline != nil, hasTrampoline)
	}
}

var _ offset.Reader = (*ram.Ram)(nil)
