package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/app"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
	httpHandlers "github.com/ANIKETSHETTY47/smart-city-data-generator/internal/http"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/metrics"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	fs := pflag.NewFlagSet("api", pflag.ExitOnError)
	fs.String("api-addr", config.APIAddr(), "listen address")
	fs.Bool("memory-store", false, "keep the registry and readings in memory")
	fs.String("sinks", "", "comma-separated sinks for POST /generate (store, mqtt, kafka, dynamodb)")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "json", "json or console")
	if err := config.BindFlags(fs); err != nil {
		log.Fatal().Err(err).Msg("flag binding failed")
	}
	_ = fs.Parse(os.Args[1:])
	config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, log.Logger, app.Options{
		Name:  "smartcity-api",
		Sinks: config.Sinks(),
		Cloud: config.UseCloudServices(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	fapp := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(fapp, a.Services,
		httpHandlers.WithMetrics(metrics.Handler(a.Registry)),
		httpHandlers.WithControlObserver(a.Metrics.ObserveControl),
	)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = fapp.Shutdown()
	}()

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	if err := fapp.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
}
