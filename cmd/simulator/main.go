package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/app"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/metrics"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

var errUnknownCommand = errors.New("unknown command")

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	fs := pflag.NewFlagSet("simulator", pflag.ExitOnError)
	fs.Bool("memory-store", false, "run against the fleet file in memory instead of PostgreSQL")
	fs.String("sinks", "", "comma-separated reading sinks: postgres, memory, mqtt, kafka, dynamodb")
	fs.String("tick-interval", "", "interval between ticks in continuous mode (e.g. 60s)")
	fs.Uint64("rng-seed", 0, "random seed; 0 seeds from the clock")
	fs.String("fleet-file", "", "YAML device inventory used by seed and --memory-store")
	fs.String("metrics-addr", "", "Prometheus listen address in continuous mode")
	fs.String("log-level", "", "log level")
	fs.String("log-format", "", "json or console")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := config.BindFlags(fs); err != nil {
		log.Fatal().Err(err).Msg("flag binding failed")
	}
	_ = fs.Parse(os.Args[1:])
	config.SetupLogging()

	cmd, args := fs.Arg(0), fs.Args()
	if len(args) > 0 {
		args = args[1:]
	}
	if cmd == "help" {
		fs.Usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, log.Logger, app.Options{
		Name:  "smartcity-simulator",
		Sinks: config.Sinks(),
		Cloud: config.UseCloudServices(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	if cmd == "" || cmd == "continuous" {
		srv := &http.Server{
			Addr:              config.MetricsAddr(),
			Handler:           metrics.Handler(a.Registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server failed")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	c := &cli{a: a, clock: simulation.SystemClock{}, out: os.Stdout, log: log.Logger}
	err = c.run(ctx, cmd, args)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info().Str("command", cmd).Msg("done")
	case errors.Is(err, errUnknownCommand):
		a.Close()
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	default:
		a.Close()
		log.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}
