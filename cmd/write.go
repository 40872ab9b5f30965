package cmd

import (
	"fmt"
	"github.com/urfave/cli"
)

var write = cli.Command{
	Name:      "set",
	Usage:     "write a value to guest memory; the game may overwrite it at any time",
	ArgsUsage: "[pid] <address> [kind] <value>",
	Flags:     targetFlags,
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		if err := writeArgsCheck(args); err != nil {
			return err
		}

		return exec(Set, pid, args, context)
	},
}

var toggle = cli.Command{
	Name:      "toggle",
	Usage:     "switch a feature on or off once and exit",
	ArgsUsage: "[pid] <feature> on|off",
	Flags:     withFlags(targetFlags, featureFlags),
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return fmt.Errorf("toggle takes a feature name and on or off")
		}

		return exec(Toggle, pid, args, context)
	},
}

var inject = cli.Command{
	Name:      "inject",
	Usage:     "install the copy trampoline of the running build",
	ArgsUsage: "[pid]",
	Flags:     targetFlags,
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}

		return exec(Inject, pid, args, context)
	},
}

type writeArgs struct {
	addr  string
	kind  string
	value string
}

func wArgs(args []string) *writeArgs {
	if len(args) == 2 {
		return &writeArgs{addr: args[0], value: args[1]}
	}
	return &writeArgs{addr: args[0], kind: args[1], value: args[2]}
}

func writeArgsCheck(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("set takes an address, an optional kind and a value")
	}
	return nil
}
