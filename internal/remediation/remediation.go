// Package remediation enables Shield application-layer automatic mitigation
// for the resource behind a protection.
package remediation

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/shield"
	"github.com/aws/aws-sdk-go-v2/service/shield/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jlefonde/crc_infra/shield_automation/internal/telemetry"
)

// ShieldAPI is the subset of the Shield client the remediation needs.
type ShieldAPI interface {
	DescribeProtection(ctx context.Context, params *shield.DescribeProtectionInput, optFns ...func(*shield.Options)) (*shield.DescribeProtectionOutput, error)
	EnableApplicationLayerAutomaticResponse(ctx context.Context, params *shield.EnableApplicationLayerAutomaticResponseInput, optFns ...func(*shield.Options)) (*shield.EnableApplicationLayerAutomaticResponseOutput, error)
}

// Request is the payload sent by the automation runbook.
type Request struct {
	ResourceID string `json:"ResourceID"`
}

type Remediator struct {
	shield ShieldAPI
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewRemediator(client ShieldAPI, logger zerolog.Logger, tracer trace.Tracer) *Remediator {
	return &Remediator{
		shield: client,
		logger: logger,
		tracer: tracer,
	}
}

func blockAction() *types.ResponseAction {
	return &types.ResponseAction{Block: &types.BlockAction{}}
}

// Remediate looks up the protection and turns on automatic response with a
// block action for its resource. The Shield output is returned as is.
func (r *Remediator) Remediate(ctx context.Context, req Request) (*shield.EnableApplicationLayerAutomaticResponseOutput, error) {
	ctx, span := r.tracer.Start(ctx, "shield.remediate",
		trace.WithAttributes(attribute.String("shield.protection_id", req.ResourceID)))
	defer span.End()

	logger := telemetry.RequestLogger(ctx, r.logger)

	output, err := r.remediate(ctx, logger, req, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str("protection_id", req.ResourceID).Msg("Remediation failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return output, nil
}

func (r *Remediator) remediate(ctx context.Context, logger zerolog.Logger, req Request, span trace.Span) (*shield.EnableApplicationLayerAutomaticResponseOutput, error) {
	if req.ResourceID == "" {
		return nil, &Error{Op: opValidate, Kind: ErrMissingField, Err: errMissingResourceID}
	}

	logger.Info().Str("protection_id", req.ResourceID).Msg("Describing protection")
	protection, err := r.shield.DescribeProtection(ctx, &shield.DescribeProtectionInput{
		ProtectionId: aws.String(req.ResourceID),
	})
	if err != nil {
		return nil, classify(opDescribe, err)
	}

	if protection.Protection == nil || aws.ToString(protection.Protection.ResourceArn) == "" {
		return nil, &Error{Op: opDescribe, Kind: ErrMalformedResponse, Err: errMissingResourceArn}
	}
	resourceArn := protection.Protection.ResourceArn
	span.SetAttributes(attribute.String("shield.resource_arn", *resourceArn))

	logger.Info().Str("resource_arn", *resourceArn).Msg("Enabling application layer automatic response")
	output, err := r.shield.EnableApplicationLayerAutomaticResponse(ctx, &shield.EnableApplicationLayerAutomaticResponseInput{
		ResourceArn: resourceArn,
		Action:      blockAction(),
	})
	if err != nil {
		return nil, classify(opEnable, err)
	}

	logger.Info().Str("resource_arn", *resourceArn).Msg("Successfully enabled automatic response")
	return output, nil
}
