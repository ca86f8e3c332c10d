package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/shield"
	"github.com/rs/zerolog/log"

	"github.com/jlefonde/crc_infra/shield_automation/internal/remediation"
	"github.com/jlefonde/crc_infra/shield_automation/internal/settings"
	"github.com/jlefonde/crc_infra/shield_automation/internal/telemetry"
)

func main() {
	ctx := context.Background()

	s, err := settings.Load("shield-remediation")
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

	// The runbook that invokes us owns the retry policy.
	awsConfig, err := s.LoadAWSConfig(ctx, settings.WithoutRetries())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load aws config")
	}

	remediator := remediation.NewRemediator(
		shield.NewFromConfig(awsConfig, s.ShieldOptions),
		logger,
		provider.Tracer("shield_remediation"),
	)

	lambda.StartWithOptions(
		telemetry.Flushing(provider, remediator.Remediate),
		lambda.WithEnableSIGTERM(provider.OnShutdown(logger)),
	)
}
