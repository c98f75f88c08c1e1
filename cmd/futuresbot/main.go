// Command futuresbot places and validates Binance USDⓈ-M futures orders.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

const usage = `Usage: futuresbot [--config file.yaml] [--debug] <command> [flags]

Commands:
  interactive   guided order entry (default)
  place         place one order from flags
  account       show balances and open positions
  symbols       list trading contracts
  watch         stream the live mark price of a symbol
  serve         run the dry-run validation API
`

type command func(ctx context.Context, app *App, args []string) error

var commands = map[string]command{
	"interactive": runInteractive,
	"place":       runPlace,
	"account":     runAccount,
	"symbols":     runSymbols,
	"watch":       runWatch,
	"serve":       runServe,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	global := flag.NewFlagSet("futuresbot", flag.ContinueOnError)
	global.SetOutput(out)
	global.Usage = func() {
		fmt.Fprint(out, usage)
		fmt.Fprintln(out, "\nGlobal flags:")
		global.PrintDefaults()
	}
	configPath := global.String("config", "", "optional YAML config file")
	debug := global.Bool("debug", false, "write a debug diary to <log dir>/debug.log")

	if err := global.Parse(args); err != nil {
		return err
	}

	name := "interactive"
	rest := global.Args()
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	app, err := NewApp(ctx, Options{
		ConfigPath: *configPath,
		Debug:      *debug,
		In:         in,
		Out:        out,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	return cmd(ctx, app, rest)
}
