package mips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJal(t *testing.T) {
	assert.Equal(t, Word(0x0c050000), Jal(0x00140000))

	target, ok := DecodeJal(Jal(0x0012a3f0))
	require.True(t, ok)
	assert.Equal(t, uint32(0x0012a3f0), target)

	// Bits above the 26-bit field are dropped.
	assert.Equal(t, Jal(0x00140000), Jal(0x10140000))
}

func TestJrRaNop(t *testing.T) {
	assert.Equal(t, [2]Word{0x03e00008, 0x00000000}, JrRaNop())
}

func TestLoadImmediateRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		value uint32
		words int
	}{
		{0, 1},
		{MaxShortImmediate, 1},
		{MaxShortImmediate + 1, 2},
		{0x3f800000, 2},
		{0xffffffff, 2},
	} {
		for _, reg := range []Register{A0, V1, T9, RA} {
			words := LoadImmediate(reg, tc.value)
			require.Len(t, words, tc.words, "value 0x%x", tc.value)

			gotReg, gotValue, ok := DecodeLoadImmediate(words)
			require.True(t, ok, "value 0x%x", tc.value)
			assert.Equal(t, reg, gotReg)
			assert.Equal(t, tc.value, gotValue)
		}
	}
}

func TestLi32AlwaysTwoWords(t *testing.T) {
	w := Li32(A1, 0x10)
	reg, v, ok := DecodeLoadImmediate(w[:])
	require.True(t, ok)
	assert.Equal(t, A1, reg)
	assert.Equal(t, uint32(0x10), v)
	assert.Equal(t, Word(0x3c050000), w[0])
	assert.Equal(t, Word(0x34a50010), w[1])
}

func TestLiPanicsOnWideValue(t *testing.T) {
	assert.Panics(t, func() { Li(A0, MaxShortImmediate+1) })
	assert.NotPanics(t, func() { Li(A0, MaxShortImmediate) })
}

func TestStackOps(t *testing.T) {
	assert.Equal(t, Word(0x27bdfff0), Addiu(SP, SP, -16))
	assert.Equal(t, Word(0xafbf000c), Sw(RA, 12, SP))
	assert.Equal(t, Word(0x8fbf000c), Lw(RA, 12, SP))
}

func TestBytes(t *testing.T) {
	b := Bytes(Jr(RA), Nop)
	assert.Equal(t, []byte{0x08, 0x00, 0xe0, 0x03, 0, 0, 0, 0}, b)
	assert.Equal(t, []Word{Jr(RA), Nop}, FromBytes(append(b, 0xff)))
}

func TestFormat(t *testing.T) {
	for w, want := range map[Word]string{
		Nop:                 "nop",
		Jr(RA):              "jr ra",
		Jal(0x00140000):     "jal 0x00140000",
		J(0x00100008):       "j 0x00100008",
		Lui(A0, 0x0012):     "lui a0, 0x0012",
		Ori(A0, A0, 0xa3f0): "ori a0, a0, 0xa3f0",
		Addiu(SP, SP, -16):  "addiu sp, sp, -16",
		Sw(RA, 0, SP):       "sw ra, 0(sp)",
		Lw(RA, 0, SP):       "lw ra, 0(sp)",
		Word(0x46000800):    ".word 0x46000800",
	} {
		assert.Equal(t, want, Format(w))
	}
}

func TestParseRegister(t *testing.T) {
	r, err := ParseRegister("$a2")
	require.NoError(t, err)
	assert.Equal(t, A2, r)

	r, err = ParseRegister("31")
	require.NoError(t, err)
	assert.Equal(t, RA, r)

	_, err = ParseRegister("x9")
	assert.Error(t, err)
}
