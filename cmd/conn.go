package cmd

import (
	"emupatch/utils"
	"fmt"
	"github.com/urfave/cli"
	"time"
)

var conn = cli.Command{
	Name:      "conn",
	Usage:     "connect a terminal to an attached emupatch",
	ArgsUsage: "<address>",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "srv",
			Usage: "the server type to connect to",
			Value: "http",
		},
	},
	Action: func(context *cli.Context) error {
		if err := utils.CheckArgs(context, 1, utils.ExactArgs, connArgsCheck); err != nil {
			return err
		}

		return exec(Conn, 0, context.Args(), context)
	},
}

func connArgsCheck(args cli.Args) error {
	addr := args.First()
	if utils.Telnet(addr, 5*time.Second) {
		return nil
	}

	return fmt.Errorf("invalid connection address: %s", addr)
}
