package ram

import (
	e "emupatch/error"
	"emupatch/pkg/mips"
	"emupatch/pkg/proc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostBase = 0x7f2a40000000

type countingMemory struct {
	proc.MemoryReadWriter
	writes int
}

func (c *countingMemory) WriteMemory(addr uint64, data []byte) (int, error) {
	c.writes++
	return c.MemoryReadWriter.WriteMemory(addr, data)
}

func newRam(t *testing.T) (*Ram, *countingMemory) {
	t.Helper()
	img := proc.NewImage()
	require.NoError(t, img.Map(hostBase, make([]byte, 0x10000)))
	mem := &countingMemory{MemoryReadWriter: img}
	return New(mem, hostBase), mem
}

type vec3 struct {
	X, Y, Z float32
}

func TestReadWriteScalars(t *testing.T) {
	r, _ := newRam(t)

	require.NoError(t, Write[uint32](r, 0x100, 0xdeadbeef))
	v, err := Read[uint32](r, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)

	b, err := r.ReadBytes(0x100, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, b)

	require.NoError(t, Write(r, 0x200, float32(1.5)))
	f, err := Read[float32](r, 0x200)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)

	require.NoError(t, Write(r, 0x204, int16(-2)))
	i, err := Read[int16](r, 0x204)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i)
}

func TestReadWriteAggregates(t *testing.T) {
	r, _ := newRam(t)

	pos := vec3{1, -2, 3.25}
	require.NoError(t, Write(r, 0x300, pos))
	got, err := Read[vec3](r, 0x300)
	require.NoError(t, err)
	assert.Equal(t, pos, got)

	arr := [4]uint16{1, 2, 3, 0xffff}
	require.NoError(t, Write(r, 0x400, arr))
	gotArr, err := Read[[4]uint16](r, 0x400)
	require.NoError(t, err)
	assert.Equal(t, arr, gotArr)
}

func TestReadRejectsVariableSize(t *testing.T) {
	r, _ := newRam(t)
	_, err := Read[[]byte](r, 0)
	assert.Error(t, err)
	assert.Error(t, Write(r, 0, "text"))
}

func TestUnmappedAccessIsTransient(t *testing.T) {
	r, _ := newRam(t)

	_, err := Read[uint32](r, 0x20000)
	require.Error(t, err)
	assert.True(t, e.IsTransient(err))
	assert.ErrorIs(t, err, proc.ErrUnmapped)

	err = r.WriteWords(0xfffe, mips.Nop)
	assert.True(t, e.IsTransient(err))
}

func TestNilMemory(t *testing.T) {
	r := New(nil, 0)
	_, err := r.ReadWord(0x100)
	assert.ErrorIs(t, err, e.InvalidHandle)
	assert.True(t, e.IsTransient(err))
	assert.ErrorIs(t, r.WriteBytes(0x100, []byte{1}), e.InvalidHandle)
}

func TestZeroBaseIsIdentity(t *testing.T) {
	img := proc.NewImage()
	require.NoError(t, img.Map(0x2000, make([]byte, 16)))
	r := New(img, 0)

	require.NoError(t, r.WriteWords(0x2004, 0x11223344))
	bs := make([]byte, 4)
	_, err := img.ReadMemory(bs, 0x2004)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, bs)
}

func TestWriteConditionalRoundTrip(t *testing.T) {
	r, _ := newRam(t)

	ret := mips.JrRaNop()
	orig := []mips.Word{mips.Addiu(mips.SP, mips.SP, -32), mips.Sw(mips.RA, 28, mips.SP)}
	patches := []Patch{
		Words(0x1000, ret[:], orig),
		Value[float32](0x2000, 90, 60),
		Word(0x3000, mips.Jal(0x00140000), mips.Jal(0x00120000)),
	}

	require.NoError(t, r.WriteConditional(true, patches...))
	words, err := r.ReadWords(0x1000, 2)
	require.NoError(t, err)
	assert.Equal(t, ret[:], words)
	fov, err := Read[float32](r, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, float32(90), fov)
	w, err := r.ReadWord(0x3000)
	require.NoError(t, err)
	assert.Equal(t, mips.Jal(0x00140000), w)

	on, err := r.State(patches...)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, r.WriteConditional(false, patches...))
	words, err = r.ReadWords(0x1000, 2)
	require.NoError(t, err)
	assert.Equal(t, orig, words)
	fov, err = Read[float32](r, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, float32(60), fov)

	on, err = r.State(patches...)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestWriteConditionalSkipsUnchangedSites(t *testing.T) {
	r, mem := newRam(t)
	p := Value[uint32](0x10, 1, 0)

	require.NoError(t, r.WriteConditional(true, p))
	assert.Equal(t, 1, mem.writes)

	for range 10 {
		require.NoError(t, r.WriteConditional(true, p))
	}
	assert.Equal(t, 1, mem.writes)

	require.NoError(t, r.WriteConditional(false, p))
	assert.Equal(t, 2, mem.writes)
}

func TestWriteConditionalContinuesAfterFailure(t *testing.T) {
	r, _ := newRam(t)
	bad := Value[uint32](0x20000, 1, 0)
	good := Value[uint32](0x20, 7, 0)

	err := r.WriteConditional(true, bad, good)
	require.Error(t, err)
	assert.True(t, e.IsTransient(err))

	v, err := Read[uint32](r, 0x20)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
}

func TestMalformedPatch(t *testing.T) {
	r, _ := newRam(t)
	err := r.WriteConditional(true, Patch{Addr: 0x10, On: []byte{1, 2}, Off: []byte{0}})
	assert.Error(t, err)
	assert.Panics(t, func() { Toggle(0x10, []byte{1, 2}, []byte{0}) })
}
