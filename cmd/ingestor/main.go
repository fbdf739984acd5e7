package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/app"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/service"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/telemetry"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	fs := pflag.NewFlagSet("ingestor", pflag.ExitOnError)
	fs.String("ingest-source", "mqtt", "mqtt or kafka")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "json", "json or console")
	if err := config.BindFlags(fs); err != nil {
		log.Fatal().Err(err).Msg("flag binding failed")
	}
	_ = fs.Parse(os.Args[1:])
	config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// readings go straight to the store; the engine is only wired for its accumulator
	a, err := app.New(ctx, log.Logger, app.Options{Name: "smartcity-ingestor"})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	switch src := config.IngestSource(); src {
	case "mqtt":
		err = ingestMQTT(ctx, a.Services.Readings)
	case "kafka":
		err = ingestKafka(ctx, a.Services.Readings)
	default:
		log.Fatal().Str("source", src).Msg("unknown ingest source")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("ingest stopped")
	}
	log.Info().Msg("ingestor stopped")
}

func ingestMQTT(ctx context.Context, readings *service.ReadingService) error {
	client, err := telemetry.NewMQTTClient(config.MQTTBroker(), "smartcity-ingestor")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := readings.FromMQTT(ctx, msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	topic := telemetry.SubscriptionTopic(config.MQTTTopicPrefix())
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	return ctx.Err()
}

func ingestKafka(ctx context.Context, readings *service.ReadingService) error {
	c := telemetry.NewKafkaConsumer(config.KafkaBrokers(), config.KafkaTopic(), config.KafkaGroupID(), log.Logger)
	defer c.Close()

	log.Info().Str("topic", config.KafkaTopic()).Str("group", config.KafkaGroupID()).Msg("ingestor running; Ctrl+C to stop")
	return c.Run(ctx, readings.FromKafka)
}
