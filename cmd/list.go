package cmd

import (
	"emupatch/pkg/games"
	"emupatch/utils"
	"github.com/urfave/cli"
)

var versions = cli.Command{
	Name:  "versions",
	Usage: "list the supported game builds",
	Action: func(context *cli.Context) error {
		if err := utils.CheckArgs(context, 0, utils.ExactArgs, nil); err != nil {
			return err
		}
		return exec(Versions, 0, nil, context)
	},
}

var resolve = cli.Command{
	Name:      "resolve",
	Usage:     "confirm the running build and print its address table",
	ArgsUsage: "[pid]",
	Flags:     targetFlags,
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		return exec(Resolve, pid, args, context)
	},
}

var scan = cli.Command{
	Name:      "scan",
	Usage:     "search guest memory for the signature of a build, for locating the base of a new build",
	ArgsUsage: "[pid] <version>",
	Flags: withFlags(targetFlags, []cli.Flag{
		cli.UintFlag{
			Name:  "from",
			Usage: "first guest address to search",
		},
		cli.UintFlag{
			Name:  "to",
			Usage: "guest address to stop searching at",
			Value: games.GuestRAMSize,
		},
	}),
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return cli.NewExitError("scan needs exactly one build id, see 'emupatch versions'", 1)
		}
		return exec(Scan, pid, args, context)
	},
}
