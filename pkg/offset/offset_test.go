package offset

import (
	e "emupatch/error"
	"emupatch/pkg/proc"
	"emupatch/pkg/ram"
	"emupatch/pkg/signature"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBase  = 0x00100000
	guestSize = 0x00200000
)

// testSignature is 64 bytes with an embedded pointer at 6..9.
func testSignature(t *testing.T) signature.Signature {
	t.Helper()
	values := make([]int, 64)
	for i := range values {
		values[i] = (i*37 + 11) & 0xff
	}
	for i := 6; i <= 9; i++ {
		values[i] = signature.Wildcard
	}
	s, err := signature.New(values)
	require.NoError(t, err)
	return s
}

func testVersion(t *testing.T) Version {
	return Version{
		ID:        "TEST-00001",
		Title:     "Test Title",
		Base:      testBase,
		Width:     64,
		Signature: testSignature(t),
		References: map[string]uint32{
			"module": 0x00200000,
		},
		Fields: []Field{
			{Name: "camera", Offset: 0x1a40},
			{Name: "hudDraw", Offset: 0x22c8},
			{Name: "memcpy", Offset: 0x3f0, From: "module"},
		},
	}
}

type failReader struct{ t *testing.T }

func (f failReader) ReadBytes(addr uint32, n int) ([]byte, error) {
	f.t.Fatalf("unexpected read of %d bytes at 0x%08x", n, addr)
	return nil, nil
}

func newMemory(t *testing.T, sig signature.Signature, at uint32, fill byte) *ram.Ram {
	t.Helper()
	img := proc.NewImage()
	data := make([]byte, guestSize)
	copy(data[at:], sig.Fill(fill))
	require.NoError(t, img.Map(0, data))
	return ram.New(img, 0)
}

func TestResolveWithArbitraryWildcardBytes(t *testing.T) {
	v := testVersion(t)
	rnd := rand.New(rand.NewSource(1))

	for range 20 {
		mem := newMemory(t, v.Signature, v.Base, byte(rnd.Intn(256)))
		wild := make([]byte, 4)
		rnd.Read(wild)
		require.NoError(t, mem.WriteBytes(v.Base+6, wild))

		table, err := Resolve(mem, v)
		require.NoError(t, err)

		assert.Equal(t, "TEST-00001", table.Version())
		assert.Equal(t, uint32(testBase), table.Base())
		assert.Equal(t, uint32(testBase+0x1a40), table.MustGet("camera"))
		assert.Equal(t, uint32(testBase+0x22c8), table.MustGet("hudDraw"))
		assert.Equal(t, uint32(0x00200000+0x3f0), table.MustGet("memcpy"))
		assert.Equal(t, []string{"camera", "hudDraw", "memcpy"}, table.Names())
	}
}

func TestResolveFailsOnAnyLiteralMismatch(t *testing.T) {
	v := testVersion(t)
	wild := map[int]bool{6: true, 7: true, 8: true, 9: true}

	for i := range 64 {
		if wild[i] {
			continue
		}
		mem := newMemory(t, v.Signature, v.Base, 0)
		b, err := mem.ReadBytes(v.Base+uint32(i), 1)
		require.NoError(t, err)
		require.NoError(t, mem.WriteBytes(v.Base+uint32(i), []byte{b[0] ^ 0x01}))

		table, err := Resolve(mem, v)
		assert.Nil(t, table)
		assert.ErrorIs(t, err, e.VersionMismatch, "byte %d", i)
		assert.True(t, e.IsResolution(err))
		assert.Equal(t, e.Unsupported, e.UserMessage(err))
	}
}

func TestResolveAtWrongBase(t *testing.T) {
	v := testVersion(t)
	mem := newMemory(t, v.Signature, v.Base+0x40, 0)

	_, err := Resolve(mem, v)
	assert.ErrorIs(t, err, e.VersionMismatch)
}

func TestResolveZeroBaseDoesNotRead(t *testing.T) {
	v := testVersion(t)
	v.Base = 0

	_, err := Resolve(failReader{t}, v)
	assert.ErrorIs(t, err, e.NotScanned)
}

func TestResolveWidthMismatch(t *testing.T) {
	v := testVersion(t)
	v.Width = 48

	_, err := Resolve(failReader{t}, v)
	assert.ErrorIs(t, err, e.SignatureWidth)

	v = testVersion(t)
	v.Signature = signature.Signature{}
	_, err = Resolve(failReader{t}, v)
	assert.ErrorIs(t, err, e.SignatureWidth)
}

func TestResolveReadFailureIsTransient(t *testing.T) {
	v := testVersion(t)
	v.Base = guestSize - 8
	mem := newMemory(t, v.Signature, 0, 0)

	_, err := Resolve(mem, v)
	require.Error(t, err)
	assert.True(t, e.IsTransient(err))
	assert.False(t, e.IsResolution(err))
}

func TestValidate(t *testing.T) {
	v := testVersion(t)
	v.Fields = append(v.Fields, Field{Name: "camera", Offset: 4})
	assert.Error(t, v.Validate())

	v = testVersion(t)
	v.Fields = append(v.Fields, Field{Name: "x", From: "nowhere"})
	assert.Error(t, v.Validate())

	v = testVersion(t)
	v.Trampoline = &TrampolineLayout{Site: "camera", Copy: "memcpy", Dest: "missing", Size: 4}
	assert.Error(t, v.Validate())

	v.Trampoline.Dest = "hudDraw"
	assert.NoError(t, v.Validate())
}

func TestTableExpr(t *testing.T) {
	v := testVersion(t)
	table, err := Resolve(newMemory(t, v.Signature, v.Base, 0), v)
	require.NoError(t, err)

	for expr, want := range map[string]uint32{
		"0x0012a3f0":    0x0012a3f0,
		"4096":          4096,
		"camera":        testBase + 0x1a40,
		"camera+0x10":   testBase + 0x1a50,
		"camera - 0x40": testBase + 0x1a00,
	} {
		got, err := table.Expr(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}

	_, err = table.Expr("nothing+4")
	assert.ErrorIs(t, err, e.FieldNotFound)
	_, err = table.Expr("camera+zz")
	assert.Error(t, err)

	var none *Table
	got, err := none.Expr("0x10")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10), got)
	_, err = none.Expr("camera")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	a := testVersion(t)
	b := testVersion(t)
	b.ID = "TEST-00002"
	b.Base = testBase + 0x8000

	reg := NewRegistry().MustRegister(a, b)
	assert.Error(t, reg.Register(a))

	ids := []string{}
	for _, v := range reg.Versions() {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"TEST-00001", "TEST-00002"}, ids)

	mem := newMemory(t, b.Signature, b.Base, 0)

	_, err := reg.Resolve(mem, "TEST-00001")
	assert.ErrorIs(t, err, e.VersionMismatch)

	table, err := reg.Resolve(mem, "TEST-00002")
	require.NoError(t, err)
	assert.Equal(t, uint32(testBase+0x8000+0x1a40), table.MustGet("camera"))

	_, err = reg.Resolve(mem, "NOPE")
	assert.ErrorIs(t, err, e.UnknownVersion)

	table, err = reg.Detect(mem)
	require.NoError(t, err)
	assert.Equal(t, "TEST-00002", table.Version())

	_, err = reg.Detect(newMemory(t, b.Signature, 0x1000, 0))
	assert.ErrorIs(t, err, e.VersionMismatch)

	bad := testVersion(t)
	bad.ID = "BAD"
	bad.Width = 1
	assert.Panics(t, func() { NewRegistry().MustRegister(bad) })
}

func TestLocate(t *testing.T) {
	sig := testSignature(t)
	mem := newMemory(t, sig, 0x0010fff0, 0xaa)
	require.NoError(t, mem.WriteBytes(0x00134000, sig.Fill(0x00)))

	found, err := Locate(mem, sig, 0x00100000, 0x00140000)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x0010fff0, 0x00134000}, found)

	_, err = Locate(mem, sig, 0x10, 0x10)
	assert.Error(t, err)

	_, err = Locate(mem, sig, guestSize-0x100, guestSize+0x100)
	assert.True(t, e.IsTransient(err))
}

func TestVerify(t *testing.T) {
	v := testVersion(t)
	mem := newMemory(t, v.Signature, v.Base, 0x5a)

	table, err := Resolve(mem, v)
	require.NoError(t, err)
	require.NoError(t, table.Verify(mem))

	// Wildcards may change freely.
	require.NoError(t, mem.WriteBytes(v.Base+7, []byte{0xff}))
	require.NoError(t, table.Verify(mem))

	require.NoError(t, mem.WriteBytes(v.Base+20, []byte{^v.Signature.Fill(0)[20]}))
	assert.ErrorIs(t, table.Verify(mem), e.VersionMismatch)
}
