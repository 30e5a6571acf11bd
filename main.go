package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/tmshv/untrack/logger"
	"github.com/tmshv/untrack/store"
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("untrack"),
		kong.Description("Remove tracking query parameters from urls, feeds and pages."),
		kong.UsageOnError(),
	)

	log, err := logger.New(cli.LogLevel, cli.Dev)
	ctx.FatalIfErrorf(err)

	app := &App{
		Logger: log,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	if cli.DB != "" {
		s, err := store.NewSqliteStore(cli.DB, log)
		ctx.FatalIfErrorf(err)
		app.Store = s
	}

	err = ctx.Run(app)
	if app.Store != nil {
		app.Store.Close()
	}
	log.Sync()
	ctx.FatalIfErrorf(err)
}
