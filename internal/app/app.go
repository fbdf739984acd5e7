// Package app wires configuration into a running generator: store, sinks,
// observers, metrics and services. The cmd binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/cloud"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/database"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/fleet"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/metrics"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/repository"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/service"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/telemetry"
)

// Sink names accepted in SINKS.
const (
	SinkStore    = "store"
	SinkPostgres = "postgres"
	SinkMemory   = "memory"
	SinkMQTT     = "mqtt"
	SinkKafka    = "kafka"
	SinkDynamoDB = "dynamodb"
)

// App is a wired generator.
type App struct {
	Store    repository.Store
	Engine   *simulation.Orchestrator
	Services *service.Services
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	log     zerolog.Logger
	awsCfg  *aws.Config
	closers []func() error
}

// Options choose what New builds. Sinks defaults to the store alone.
type Options struct {
	Name  string
	Sinks []string
	// Cloud attaches the S3, SNS and Lambda observers.
	Cloud bool
}

// New opens the store, builds the sinks and returns the wired generator.
// Call Close when done.
func New(ctx context.Context, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{log: log, Registry: prometheus.NewRegistry()}
	a.Metrics = metrics.New(a.Registry)

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	if opts.Name == "" {
		opts.Name = "smartcity"
	}
	sink, seeder, err := a.buildSinks(ctx, opts.Name, opts.Sinks)
	if err != nil {
		a.Close()
		return nil, err
	}

	observers := []simulation.TickObserver{a.Metrics}
	var notifier *cloud.SNSNotifier
	if opts.Cloud {
		cfg, err := a.aws(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		observers = append(observers,
			cloud.NewS3Archiver(cfg, config.S3Bucket(), log),
			cloud.NewAnalyticsTrigger(cfg, config.AnalyticsFunction(), log),
		)
		if arn := config.SNSTopicArn(); arn != "" {
			notifier = cloud.NewSNSNotifier(cfg, arn, log)
			observers = append(observers, notifier)
		}
	}

	seed := config.RNGSeed()
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	a.Engine = simulation.New(store, store, sink, seeder, simulation.NewSource(seed), log,
		simulation.WithStationID(config.WeatherStationID()),
		simulation.WithIntervals(simulation.Intervals{Energy: config.EnergyInterval(), Flow: config.FlowInterval()}),
		simulation.WithObservers(observers...),
	)
	a.Services = service.New(store, a.Engine, log)
	if notifier != nil {
		a.Services.Maintenance.SetNotifier(notifier)
	}
	return a, nil
}

// openStore returns an in-memory store seeded from the fleet file, or the
// PostgreSQL store with its schema applied.
func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if config.MemoryStore() {
		mem := repository.NewMemory()
		if _, err := a.SeedFleet(ctx, mem); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return mem, nil
	}

	db, err := database.Connect()
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return repository.New(db), nil
}

// SeedFleet loads FLEET_FILE into reg. Devices that already exist are left
// untouched.
func (a *App) SeedFleet(ctx context.Context, reg fleet.Registry) (fleet.Result, error) {
	f, err := fleet.Load(config.FleetFile())
	if err != nil {
		return fleet.Result{}, err
	}
	res, err := fleet.Seed(ctx, reg, f)
	if err != nil {
		return res, err
	}
	a.log.Info().
		Int("categories", res.Categories).
		Int("poles", res.Poles).
		Int("modules", res.Modules).
		Int("power_meters", res.PowerMeters).
		Int("flow_meters", res.FlowMeters).
		Int("existing", res.Existing).
		Str("file", config.FleetFile()).
		Msg("fleet seeded")
	return res, nil
}

func (a *App) aws(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &cfg
	return cfg, nil
}

// buildSinks resolves sink names. Flow totals are seeded from the store when
// it is a sink, otherwise from DynamoDB when that is.
func (a *App) buildSinks(ctx context.Context, name string, names []string) (simulation.Sink, simulation.TotalSeeder, error) {
	if len(names) == 0 {
		names = []string{SinkStore}
	}
	var (
		sinks   telemetry.Fanout
		seeder  simulation.TotalSeeder
		dynamo  *cloud.DynamoSink
		toStore bool
	)
	for _, n := range names {
		switch n {
		case SinkStore, SinkPostgres, SinkMemory:
			if !toStore {
				sinks = append(sinks, a.Store)
				toStore = true
			}
		case SinkMQTT:
			client, err := telemetry.NewMQTTClient(config.MQTTBroker(), name)
			if err != nil {
				return nil, nil, err
			}
			s := telemetry.NewPublishSink(telemetry.NewMQTTTransport(client, config.MQTTTopicPrefix(), 1))
			a.closers = append(a.closers, s.Close)
			sinks = append(sinks, s)
		case SinkKafka:
			s := telemetry.NewPublishSink(telemetry.NewKafkaTransport(config.KafkaBrokers(), config.KafkaTopic()))
			a.closers = append(a.closers, s.Close)
			sinks = append(sinks, s)
		case SinkDynamoDB:
			cfg, err := a.aws(ctx)
			if err != nil {
				return nil, nil, err
			}
			dynamo = cloud.NewDynamoSink(cfg, config.DynamoTable())
			sinks = append(sinks, dynamo)
		default:
			return nil, nil, fmt.Errorf("unknown sink %q", n)
		}
	}

	switch {
	case toStore:
		seeder = a.Store
	case dynamo != nil:
		seeder = dynamo
	}
	a.log.Info().Strs("sinks", names).Msg("reading sinks ready")
	if len(sinks) == 1 {
		return sinks[0], seeder, nil
	}
	return sinks, seeder, nil
}

// Close releases sinks and the database in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
