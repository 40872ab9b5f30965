package cmd

import (
	"github.com/urfave/cli"
	"time"
)

var attach = cli.Command{
	Name:      "attach",
	Usage:     "attach to an emulator, keep the enabled features applied and open a terminal",
	ArgsUsage: "[pid]",
	Flags: withFlags(targetFlags, featureFlags, []cli.Flag{
		cli.StringFlag{
			Name:   "srv",
			Usage:  "the server type to start",
			Value:  "http",
			EnvVar: "EMUPATCH_SRV",
		},
		cli.StringFlag{
			Name:   "listen, l",
			Usage:  "address of the control server",
			Value:  defaultAddr,
			EnvVar: "EMUPATCH_LISTEN",
		},
		cli.StringFlag{
			Name:   "grpc",
			Usage:  "also serve the gRPC health service on this address",
			EnvVar: "EMUPATCH_GRPC",
		},
		cli.DurationFlag{
			Name:  "interval, i",
			Usage: "time between two update passes",
			Value: time.Second / 60,
		},
		cli.DurationFlag{
			Name:  "health-interval",
			Usage: "time between two signature checks of the health service",
			Value: time.Second,
		},
		cli.StringSliceFlag{
			Name:  "enable, e",
			Usage: "feature to switch on right away, may be repeated",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "serve without a terminal until interrupted",
		},
	}),
	Action: func(context *cli.Context) error {
		pid, args, err := targetArgs(context)
		if err != nil {
			return err
		}
		if len(args) != 0 {
			return cli.NewExitError("attach takes at most a pid", 1)
		}

		return exec(Attach, pid, nil, context)
	},
}
