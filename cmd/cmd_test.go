package cmd

import (
	"emupatch/pkg/games"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestCommandNames(t *testing.T) {
	app := NewExp()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"versions", "resolve", "scan", "get", "disasm", "set", "toggle", "inject", "attach", "conn"}, names)
}

func TestWriteArgs(t *testing.T) {
	w := wArgs([]string{"fov", "1"})
	assert.Equal(t, &writeArgs{addr: "fov", value: "1"}, w)

	w = wArgs([]string{"fov", "f32", "1.5"})
	assert.Equal(t, &writeArgs{addr: "fov", kind: "f32", value: "1.5"}, w)

	assert.Error(t, writeArgsCheck([]string{"fov"}))
	assert.Error(t, readArgsCheck(nil))
	assert.Equal(t, &readArgs{addr: "camera", kind: "u8"}, rArgs([]string{"camera", "u8"}))
}

func dumpContext(t *testing.T, dump string, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("dump", "", "")
	set.String("name", "", "")
	set.String("host-base", "", "")
	set.String("version", "", "")
	set.String("features", "", "")
	require.NoError(t, set.Parse(append([]string{"--dump", dump}, args...)))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func writeDump(t *testing.T, id string) string {
	t.Helper()
	v, err := games.Registry().Lookup(id)
	require.NoError(t, err)

	data := make([]byte, games.GuestRAMSize)
	copy(data[v.Base:], v.Signature.Fill(0))
	path := filepath.Join(t.TempDir(), "ram.bin")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestDumpTarget(t *testing.T) {
	path := writeDump(t, "SLES-59001")

	ctx := dumpContext(t, path, "camera", "u32")
	pid, args, err := targetArgs(ctx)
	require.NoError(t, err)
	assert.Zero(t, pid)
	assert.Equal(t, []string{"camera", "u32"}, args)

	tgt, s, err := newSession(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, path, tgt.desc)
	assert.Equal(t, "SLES-59001", s.Table().Version())
	assert.Len(t, s.Status(), 3)
}

func TestOpenBuildIgnoresFeatures(t *testing.T) {
	path := writeDump(t, "SLPM-69001")
	ctx := dumpContext(t, path, "--features", filepath.Join(t.TempDir(), "missing.yaml"), "camera")

	tgt, table, err := openBuild(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, path, tgt.desc)
	assert.Equal(t, "SLPM-69001", table.Version())

	_, _, err = newSession(ctx, 0)
	assert.Error(t, err)
}
