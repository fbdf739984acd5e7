package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/cloud"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
)

// Daily analytics over the readings the dynamodb sink stores. Invoked
// asynchronously by the generator when a day rolls over.
func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging()

	cfg, err := cloud.LoadConfig(context.Background(), config.AWSRegion())
	if err != nil {
		log.Fatal().Err(err).Msg("aws config failed")
	}
	p := cloud.NewAnalyticsProcessor(cfg, config.DynamoTable(), config.ReportBucket(), log.Logger)
	lambda.Start(p.Handle)
}
