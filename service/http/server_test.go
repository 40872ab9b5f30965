package http

import (
	"emupatch/pkg/customcode"
	"emupatch/pkg/mips"
	"emupatch/pkg/offset"
	"emupatch/pkg/proc"
	"emupatch/pkg/ram"
	"emupatch/pkg/session"
	"emupatch/pkg/signature"
	"emupatch/service"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	base    = 0x00100000
	hud     = 0x00100100
	scratch = 0x00100800
)

func newTestClient(t *testing.T) (*Client, *ram.Ram) {
	t.Helper()
	sig := signature.MustParse("11 22 ?? ?? 55 66 77 88")
	img := proc.NewImage()
	data := make([]byte, 0x1000)
	copy(data, sig.Fill(0))
	require.NoError(t, img.Map(base, data))
	r := ram.New(img, 0)

	table, err := offset.Resolve(r, offset.Version{
		ID:        "TEST",
		Base:      base,
		Width:     8,
		Signature: sig,
		Fields: []offset.Field{
			{Name: "hud", Offset: 0x100},
			{Name: "memcpy", Offset: 0x400},
			{Name: "fov", Offset: 0x200},
			{Name: "scratch", Offset: 0x800},
		},
		Trampoline: &offset.TrampolineLayout{Site: "scratch", Copy: "memcpy", Dest: "fov", Size: 4},
	})
	require.NoError(t, err)

	ret := mips.JrRaNop()
	s, err := session.New(r, table, session.Feature{
		Name:    "hud",
		Patches: []ram.Patch{ram.Words(hud, ret[:], []mips.Word{1, 2})},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(NewServer(nil, s))
	t.Cleanup(ts.Close)

	c, err := NewClient(strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	return c, r
}

func TestGetSet(t *testing.T) {
	c, r := newTestClient(t)

	out, err := c.SendExpr(service.Set, "fov f32 1.25")
	require.NoError(t, err)
	assert.Equal(t, "fov @ 0x00100200: 1.25", out)

	f, err := ram.Read[float32](r, 0x00100200)
	require.NoError(t, err)
	assert.Equal(t, float32(1.25), f)

	out, err = c.SendExpr(service.Get, "hud+4 u16")
	require.NoError(t, err)
	assert.Equal(t, "hud+4 @ 0x00100104: 0x0000 (0)", out)

	_, err = c.SendExpr(service.Get, "nowhere")
	assert.Error(t, err)
	_, err = c.SendExpr(service.Get, "")
	assert.Error(t, err)
	_, err = c.SendExpr(service.Get, "0x00900000")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	c, _ := newTestClient(t)

	out, err := c.SendExpr(service.List, "")
	require.NoError(t, err)
	assert.Contains(t, out, "TEST base 0x00100000")
	assert.Contains(t, out, "scratch")

	out, err = c.SendExpr(service.List, "f h")
	require.NoError(t, err)
	assert.Contains(t, out, "fov")
	assert.Contains(t, out, "hud")
	assert.NotContains(t, out, "memcpy")
}

func TestToggleAndStatus(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.SendExpr(service.Toggle, "hud on")
	require.NoError(t, err)
	_, err = c.SendExpr(service.Toggle, "hud sideways")
	assert.Error(t, err)
	_, err = c.SendExpr(service.Toggle, "radar on")
	assert.ErrorContains(t, err, "404")

	out, err := c.SendExpr(service.Status, "")
	require.NoError(t, err)
	assert.Contains(t, out, "hud")
	assert.Contains(t, out, "true")
}

func TestInjectAndDisasm(t *testing.T) {
	c, r := newTestClient(t)

	out, err := c.SendExpr(service.Inject, "")
	require.NoError(t, err)
	assert.Contains(t, out, "trampoline at 0x00100800")
	assert.Contains(t, out, "installed now: true")

	tr := customcode.NewCopyTrampoline(scratch, base+0x400, base+0x200, 4)
	intact, err := tr.IsIntact(r)
	require.NoError(t, err)
	assert.True(t, intact)

	out, err = c.SendExpr(service.Inject, "")
	require.NoError(t, err)
	assert.Contains(t, out, "installed now: false")

	out, err = c.SendExpr(service.Disasm, "scratch 2")
	require.NoError(t, err)
	assert.Equal(t, "00100800: 27bdfff0  addiu sp, sp, -16\n00100804: afbf000c  sw ra, 12(sp)", out)

	_, err = c.SendExpr(service.Disasm, "scratch 100000")
	assert.Error(t, err)
}
