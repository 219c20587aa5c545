package main

import (
	"context"
	"errors"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal

	"github.com/alecthomas/kong"

	"github.com/circleci/ex-demos/cmd"
	"github.com/circleci/ex-demos/cmd/setup"
	"github.com/circleci/ex-demos/httpserver"
	"github.com/circleci/ex-demos/httpserver/healthcheck"
	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/system"
	"github.com/circleci/ex-demos/termination"
	"github.com/circleci/ex-demos/visits"
)

type cli struct {
	setup.CLI
	setup.RedisCLI

	APIAddr string `env:"API_ADDR" default:":5000" help:"The address for the API to listen on"`
}

func main() {
	cli := cli{}
	kong.Parse(&cli)

	err := run(cmd.Version, cmd.Date, cli)
	if err != nil && !errors.Is(err, termination.ErrTerminated) {
		log.Fatal("Unexpected Error: ", err)
	}
	log.Println("exited 0")
}

func run(version, date string, cli cli) (err error) {
	ctx, o11yCleanup, err := setup.LoadO11y(version, "visits", cli.CLI)
	if err != nil {
		return err
	}
	defer o11yCleanup(ctx)

	ctx, runSpan := o11y.StartSpan(ctx, "main: run")
	defer o11y.End(runSpan, &err)

	o11y.Log(ctx, "starting visits",
		o11y.Field("version", version),
		o11y.Field("date", date),
	)

	sys := system.New()
	defer sys.Cleanup(ctx)

	err = loadAPI(ctx, cli, sys)
	if err != nil {
		return err
	}

	// Should be last so it collects all the health checks
	_, err = healthcheck.Load(ctx, cli.AdminAddr, sys)
	if err != nil {
		return err
	}

	return sys.Run(ctx, cli.ShutdownDelay)
}

func loadAPI(ctx context.Context, cli cli, sys *system.System) error {
	client, err := setup.LoadRedis(ctx, cli.RedisCLI, sys)
	if err != nil {
		return err
	}

	a := visits.New(ctx, visits.Options{
		Counter: visits.NewCounter(client),
	})

	_, err = httpserver.Load(ctx, httpserver.Config{
		Name:    "visits",
		Addr:    cli.APIAddr,
		Handler: a.Handler(),
	}, sys)
	return err
}
