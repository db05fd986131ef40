package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/lnp-bp/invoice/invoice"
	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[invoice] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "invoice"
	app.Version = "0.1.0"
	app.Usage = "command-line tool for working with universal invoicing"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable trace logging to stderr.",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if !ctx.GlobalBool("debug") {
			return nil
		}

		backend := btclog.NewBackend(os.Stderr)
		logger := backend.Logger("INVC")
		logger.SetLevel(btclog.LevelTrace)
		invoice.UseLogger(logger)

		return nil
	}
	app.Commands = []cli.Command{
		createCommand,
		convertCommand,
		rgbConvertCommand,
		concealCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
