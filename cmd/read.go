package cmd

import (
	"emupatch/utils"
	"fmt"
	"github.com/urfave/cli"
)

var read = cli.Command{
	Name:      "get",
	Usage:     "read a value from guest memory",
	ArgsUsage: "[pid] <address> [kind]",
	Flags:     targetFlags,
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		if err := readArgsCheck(args); err != nil {
			return err
		}

		return exec(Get, pid, args, context)
	},
}

var disasm = cli.Command{
	Name:      "disasm",
	Usage:     "disassemble guest memory",
	ArgsUsage: "[pid] <address> [words]",
	Flags:     targetFlags,
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("disasm takes an address and an optional word count")
		}

		return exec(Disasm, pid, args, context)
	},
}

type readArgs struct {
	addr string
	kind string
}

func rArgs(args []string) *readArgs {
	r := &readArgs{addr: args[0]}
	if len(args) > 1 {
		r.kind = args[1]
	}
	return r
}

func readArgsCheck(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("get takes an address and an optional kind (%v)", utils.Kinds)
	}
	return nil
}
