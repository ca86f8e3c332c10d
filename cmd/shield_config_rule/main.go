package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	"github.com/aws/aws-sdk-go-v2/service/shield"
	"github.com/rs/zerolog/log"

	"github.com/jlefonde/crc_infra/shield_automation/internal/compliance"
	"github.com/jlefonde/crc_infra/shield_automation/internal/settings"
	"github.com/jlefonde/crc_infra/shield_automation/internal/telemetry"
)

func main() {
	ctx := context.Background()

	s, err := settings.Load("shield-config-rule")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load settings")
	}

	logger, err := telemetry.NewLogger(os.Stdout, s.ServiceName, s.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create logger")
	}

	provider, err := telemetry.Setup(ctx, s.ServiceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}

	awsConfig, err := s.LoadAWSConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load aws config")
	}

	// Config is regional, Shield is not.
	evaluator := compliance.NewEvaluator(
		configservice.NewFromConfig(awsConfig),
		shield.NewFromConfig(awsConfig, s.ShieldOptions),
		logger,
		provider.Tracer("shield_config_rule"),
	)

	lambda.StartWithOptions(
		telemetry.Flushing(provider, evaluator.Evaluate),
		lambda.WithEnableSIGTERM(provider.OnShutdown(logger)),
	)
}
