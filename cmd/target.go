package cmd

import (
	"emupatch/pkg/games"
	"emupatch/pkg/offset"
	"emupatch/pkg/patchset"
	"emupatch/pkg/proc"
	"emupatch/pkg/prowler"
	"emupatch/pkg/ram"
	"emupatch/pkg/session"
	"emupatch/utils"
	"fmt"
	"github.com/urfave/cli"
	"strconv"
)

// targetFlags select the memory a command works on: a live process, given
// by pid argument or --name, or a raw dump of guest memory.
var targetFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "name, n",
		Usage:  "find the emulator process by name instead of pid",
		EnvVar: "EMUPATCH_NAME",
	},
	cli.StringFlag{
		Name:   "host-base",
		Usage:  "host address of guest address 0, skips the search through /proc/<pid>/maps",
		EnvVar: "EMUPATCH_HOST_BASE",
	},
	cli.StringFlag{
		Name:  "dump",
		Usage: "use a raw dump of guest memory starting at guest address 0 instead of a process",
	},
	cli.StringFlag{
		Name:   "version, V",
		Usage:  "build id to resolve; the running build is detected when empty",
		EnvVar: "EMUPATCH_VERSION",
	},
}

var featureFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "features",
		Usage:  "YAML patch set to load instead of the built-in one",
		EnvVar: "EMUPATCH_FEATURES",
	},
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// target is the guest memory a command operates on.
type target struct {
	ram     *ram.Ram
	prowler *prowler.Prowler
	desc    string
}

// targetArgs splits the pid off the positional arguments unless --name or
// --dump select the target.
func targetArgs(ctx *cli.Context) (pid int, rest []string, err error) {
	args := []string(ctx.Args())
	if ctx.String("dump") != "" {
		return 0, args, nil
	}
	if name := ctx.String("name"); name != "" {
		pid, err = utils.FindPid(name)
		return pid, args, err
	}

	if len(args) == 0 {
		return 0, nil, fmt.Errorf("missing pid, pass one or use --name or --dump")
	}
	if !utils.CheckPid(args[0]) {
		return 0, nil, fmt.Errorf("pid %s does not exist", args[0])
	}
	pid, err = strconv.Atoi(args[0])
	return pid, args[1:], err
}

func openTarget(ctx *cli.Context, pid int) (*target, error) {
	if dump := ctx.String("dump"); dump != "" {
		img, err := proc.LoadImage(dump, 0)
		if err != nil {
			return nil, err
		}
		return &target{ram: ram.New(img, 0), desc: dump}, nil
	}

	p, err := prowler.NewProwler(pid)
	if err != nil {
		return nil, err
	}

	var base uint64
	if hb := ctx.String("host-base"); hb != "" {
		base, err = strconv.ParseUint(hb, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad --host-base %q: %w", hb, err)
		}
	} else if base, err = p.GuestMemory(games.GuestRAMSize); err != nil {
		return nil, err
	}

	name := utils.ProcessName(pid)
	if exe, err := p.Executable(); err == nil {
		name = exe
	}
	return &target{
		ram:     ram.New(p, base),
		prowler: p,
		desc:    fmt.Sprintf("%s (pid %d, guest memory at 0x%x)", name, pid, base),
	}, nil
}

func (t *target) resolve(ctx *cli.Context) (*offset.Table, error) {
	reg := games.Registry()
	if id := ctx.String("version"); id != "" {
		return reg.Resolve(t.ram, id)
	}
	return reg.Detect(t.ram)
}

func loadFeatures(ctx *cli.Context, table *offset.Table) ([]session.Feature, error) {
	var (
		set *patchset.Set
		err error
	)
	if path := ctx.String("features"); path != "" {
		set, err = patchset.Load(path)
	} else {
		set, err = patchset.Parse(games.Features)
	}
	if err != nil {
		return nil, err
	}

	features, skipped, err := set.Resolve(table)
	if err != nil {
		return nil, err
	}
	for _, name := range skipped {
		fmt.Printf("feature %s is not available on %s\n", name, table.Version())
	}
	return features, nil
}

// openBuild opens the target and resolves the running build.
func openBuild(ctx *cli.Context, pid int) (*target, *offset.Table, error) {
	t, err := openTarget(ctx, pid)
	if err != nil {
		return nil, nil, err
	}

	table, err := t.resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	return t, table, nil
}

// newSession opens the target, resolves the build and loads the features.
func newSession(ctx *cli.Context, pid int) (*target, *session.Session, error) {
	t, table, err := openBuild(ctx, pid)
	if err != nil {
		return nil, nil, err
	}

	features, err := loadFeatures(ctx, table)
	if err != nil {
		return nil, nil, err
	}

	s, err := session.New(t.ram, table, features...)
	if err != nil {
		return nil, nil, err
	}
	return t, s, nil
}
