// Package compliance implements the Config rule that reports whether opted-in
// Shield protections have application layer automatic response configured.
package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	configtypes "github.com/aws/aws-sdk-go-v2/service/configservice/types"
	"github.com/aws/aws-sdk-go-v2/service/shield"
	shieldtypes "github.com/aws/aws-sdk-go-v2/service/shield/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jlefonde/crc_infra/shield_automation/internal/telemetry"
)

var (
	ErrFailedEvaluations = errors.New("config rejected evaluations")
	ErrNoHistory         = errors.New("no configuration history")
)

// ConfigAPI is the subset of the Config client used by the rule.
type ConfigAPI interface {
	GetResourceConfigHistory(ctx context.Context, params *configservice.GetResourceConfigHistoryInput, optFns ...func(*configservice.Options)) (*configservice.GetResourceConfigHistoryOutput, error)
	PutEvaluations(ctx context.Context, params *configservice.PutEvaluationsInput, optFns ...func(*configservice.Options)) (*configservice.PutEvaluationsOutput, error)
}

// TagsAPI reads the opt-in tag of a protection.
type TagsAPI interface {
	ListTagsForResource(ctx context.Context, params *shield.ListTagsForResourceInput, optFns ...func(*shield.Options)) (*shield.ListTagsForResourceOutput, error)
}

type Evaluator struct {
	config ConfigAPI
	shield TagsAPI
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewEvaluator(configClient ConfigAPI, shieldClient TagsAPI, logger zerolog.Logger, tracer trace.Tracer) *Evaluator {
	return &Evaluator{
		config: configClient,
		shield: shieldClient,
		logger: logger,
		tracer: tracer,
	}
}

func decodeEventField(raw string, name string, v any) error {
	if raw == "" {
		return fmt.Errorf("%s is not defined", name)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return nil
}

func protectionArn(item *ConfigurationItem) string {
	return fmt.Sprintf("arn:aws:shield::%s:protection/%s", item.AWSAccountID, item.ResourceID)
}

// fromAPIConfigurationItem converts a history item to the invocation model.
func fromAPIConfigurationItem(apiItem configtypes.ConfigurationItem) (*ConfigurationItem, error) {
	item := &ConfigurationItem{
		AWSAccountID:            aws.ToString(apiItem.AccountId),
		ARN:                     aws.ToString(apiItem.Arn),
		ResourceType:            string(apiItem.ResourceType),
		ResourceID:              aws.ToString(apiItem.ResourceId),
		ConfigurationItemStatus: string(apiItem.ConfigurationItemStatus),
	}
	if apiItem.ConfigurationItemCaptureTime != nil {
		item.ConfigurationItemCaptureTime = *apiItem.ConfigurationItemCaptureTime
	}

	if configuration := aws.ToString(apiItem.Configuration); configuration != "" {
		if err := json.Unmarshal([]byte(configuration), &item.Configuration); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}

	return item, nil
}

func (e *Evaluator) getConfiguration(ctx context.Context, summary *ConfigurationItemSummary) (*ConfigurationItem, error) {
	history, err := e.config.GetResourceConfigHistory(ctx, &configservice.GetResourceConfigHistoryInput{
		ResourceType: configtypes.ResourceType(summary.ResourceType),
		ResourceId:   aws.String(summary.ResourceID),
		LaterTime:    aws.Time(summary.ConfigurationItemCaptureTime),
		Limit:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get resource config history: %w", err)
	}

	// History is returned newest first, so the one item asked for is the latest.
	if len(history.ConfigurationItems) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoHistory, summary.ResourceID)
	}

	return fromAPIConfigurationItem(history.ConfigurationItems[0])
}

func (e *Evaluator) getConfigurationItem(ctx context.Context, logger zerolog.Logger, invokingEvent *InvokingEvent) (*ConfigurationItem, error) {
	if invokingEvent.MessageType == OVERSIZED_NOTIFICATION {
		if invokingEvent.ConfigurationItemSummary == nil {
			return nil, errors.New("configurationItemSummary is not defined")
		}

		logger.Info().Str("resource_id", invokingEvent.ConfigurationItemSummary.ResourceID).Msg("Fetching oversized configuration item")
		return e.getConfiguration(ctx, invokingEvent.ConfigurationItemSummary)
	}

	if invokingEvent.ConfigurationItem == nil {
		return nil, errors.New("configurationItem is not defined")
	}

	return invokingEvent.ConfigurationItem, nil
}

// isApplicable is false for deleted resources and ones outside the rule scope.
func isApplicable(item *ConfigurationItem, event events.ConfigEvent) bool {
	status := item.ConfigurationItemStatus
	return (status == STATUS_OK || status == STATUS_DISCOVERED) && !event.EventLeftScope
}

func (e *Evaluator) optedIn(ctx context.Context, logger zerolog.Logger, item *ConfigurationItem) bool {
	arn := protectionArn(item)
	tags, err := e.shield.ListTagsForResource(ctx, &shield.ListTagsForResourceInput{
		ResourceARN: aws.String(arn),
	})
	if err != nil {
		logger.Warn().Err(err).Str("protection_arn", arn).Msg("Failed to list protection tags")
		return false
	}

	idx := slices.IndexFunc(tags.Tags, func(tag shieldtypes.Tag) bool {
		return aws.ToString(tag.Key) == OPT_IN_TAG
	})
	if idx == -1 {
		return false
	}

	return aws.ToString(tags.Tags[idx].Value) == "true"
}

func (e *Evaluator) evaluate(ctx context.Context, logger zerolog.Logger, item *ConfigurationItem, params RuleParameters) configtypes.ComplianceType {
	if item.ResourceType != SHIELD_PROTECTION_TYPE {
		return configtypes.ComplianceTypeNotApplicable
	}

	if !e.optedIn(ctx, logger, item) {
		return configtypes.ComplianceTypeNotApplicable
	}

	if params.ApplicationLayerAutomaticResponseConfiguration == item.Configuration.automaticResponseStatus() {
		return configtypes.ComplianceTypeCompliant
	}

	return configtypes.ComplianceTypeNonCompliant
}

// Evaluate handles one Config rule invocation and reports the result back to Config.
func (e *Evaluator) Evaluate(ctx context.Context, event events.ConfigEvent) (*configservice.PutEvaluationsOutput, error) {
	ctx, span := e.tracer.Start(ctx, "config.evaluate",
		trace.WithAttributes(attribute.String("config.rule", event.ConfigRuleName)))
	defer span.End()

	logger := telemetry.RequestLogger(ctx, e.logger)

	output, err := e.evaluateEvent(ctx, logger, event, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str("config_rule", event.ConfigRuleName).Msg("Evaluation failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return output, nil
}

func (e *Evaluator) evaluateEvent(ctx context.Context, logger zerolog.Logger, event events.ConfigEvent, span trace.Span) (*configservice.PutEvaluationsOutput, error) {
	var invokingEvent InvokingEvent
	if err := decodeEventField(event.InvokingEvent, "invokingEvent", &invokingEvent); err != nil {
		return nil, err
	}

	var params RuleParameters
	if err := decodeEventField(event.RuleParameters, "ruleParameters", &params); err != nil {
		return nil, err
	}

	item, err := e.getConfigurationItem(ctx, logger, &invokingEvent)
	if err != nil {
		return nil, err
	}

	compliance := configtypes.ComplianceTypeNotApplicable
	if isApplicable(item, event) {
		compliance = e.evaluate(ctx, logger, item, params)
	}
	span.SetAttributes(
		attribute.String("config.resource_id", item.ResourceID),
		attribute.String("config.compliance", string(compliance)),
	)

	logger.Info().
		Str("resource_type", item.ResourceType).
		Str("resource_id", item.ResourceID).
		Str("resource_arn", item.ARN).
		Str("compliance", string(compliance)).
		Msg("Reporting evaluation")
	output, err := e.config.PutEvaluations(ctx, &configservice.PutEvaluationsInput{
		Evaluations: []configtypes.Evaluation{
			{
				ComplianceResourceType: aws.String(item.ResourceType),
				ComplianceResourceId:   aws.String(item.ResourceID),
				ComplianceType:         compliance,
				OrderingTimestamp:      aws.Time(item.ConfigurationItemCaptureTime),
			},
		},
		ResultToken: aws.String(event.ResultToken),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put evaluations: %w", err)
	}

	if len(output.FailedEvaluations) > 0 {
		return nil, fmt.Errorf("%w: %d of 1 failed", ErrFailedEvaluations, len(output.FailedEvaluations))
	}

	return output, nil
}
