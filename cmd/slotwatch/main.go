package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// CLI is the command line of slotwatch.
type CLI struct {
	Config  string `short:"c" help:"Path to the YAML/JSON configuration file. Searches default locations when empty." type:"path"`
	EnvFile string `name:"env-file" help:"Path to a .env file loaded before the environment overlay." type:"path"`

	Run    RunCmd    `cmd:"" default:"1" help:"Run the scheduler, the Telegram command bot and the admin API until interrupted"`
	Sweep  SweepCmd  `cmd:"" help:"Run a single sweep over all tracked resources and exit"`
	Add    AddCmd    `cmd:"" help:"Start tracking a URL for an owner"`
	Remove RemoveCmd `cmd:"" help:"Stop tracking a URL for an owner"`
	List   ListCmd   `cmd:"" help:"List the URLs tracked by an owner"`
	Slots  SlotsCmd  `cmd:"" help:"Show the stored slots of a tracked resource"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("slotwatch"),
		kong.Description("Watches interview scheduling pages and notifies owners about new time slots."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(&cli)
	stop()
	kctx.FatalIfErrorf(err)
}
