package cmd

import (
	"emupatch/pkg/logflags"
	"github.com/urfave/cli"
)

const (
	usage = `emupatch locates a supported game build inside a running emulator and
             patches its code and data through the emulator's memory`
)

func NewExp() *cli.App {
	app := cli.NewApp()
	app.Name = "emupatch"
	app.Usage = usage
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:   "logFlag, f",
			Usage:  "enable debug logging",
			EnvVar: "EMUPATCH_LOG",
		},
		cli.StringFlag{
			Name:   "logStr, s",
			Usage:  "comma separated components to log: http, ram, resolver, session, inject or all",
			Value:  "session",
			EnvVar: "EMUPATCH_LOG_COMPONENTS",
		},
		cli.StringFlag{
			Name:   "logDesc, d",
			Usage:  "log destination: a file path, a file descriptor or stderr",
			Value:  logflags.DefaultLogDesc,
			EnvVar: "EMUPATCH_LOG_DEST",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		logStr := ctx.String("logStr")
		if !ctx.Bool("logFlag") && !ctx.IsSet("logStr") {
			logStr = ""
		}
		return logflags.Setup(ctx.Bool("logFlag"), logStr, ctx.String("logDesc"))
	}
	app.After = func(ctx *cli.Context) error {
		logflags.Close()
		return nil
	}
	app.Commands = []cli.Command{
		versions,
		resolve,
		scan,
		read,
		disasm,
		write,
		toggle,
		inject,
		attach,
		conn,
	}

	return app
}
