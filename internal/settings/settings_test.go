package settings

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/shield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("shield-remediation")

	require.NoError(t, err)
	assert.Equal(t, "shield-remediation", s.ServiceName)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "us-east-1", s.ShieldRegion)
	assert.Zero(t, s.RetryMaxAttempts)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVICE_NAME", "custom")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHIELD_REGION", "us-gov-west-1")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")

	s, err := Load("shield-config-rule")

	require.NoError(t, err)
	assert.Equal(t, "custom", s.ServiceName)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "us-gov-west-1", s.ShieldRegion)
	assert.Equal(t, 5, s.RetryMaxAttempts)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown log level", "LOG_LEVEL", "loud"},
		{"non numeric retries", "RETRY_MAX_ATTEMPTS", "many"},
		{"zero retries", "RETRY_MAX_ATTEMPTS", "0"},
		{"empty region", "SHIELD_REGION", ""},
		{"empty service name", "SERVICE_NAME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("svc")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestShieldOptions_PinsRegion(t *testing.T) {
	s := &Settings{ShieldRegion: "us-east-1"}
	opts := shield.Options{Region: "eu-central-1"}

	s.ShieldOptions(&opts)

	assert.Equal(t, "us-east-1", opts.Region)
}

func TestLoadAWSConfig_WithoutRetries(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	s := &Settings{RetryMaxAttempts: 3}

	awsConfig, err := s.LoadAWSConfig(context.Background(), WithoutRetries())

	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", awsConfig.Region)
	require.NotNil(t, awsConfig.Retryer)
	assert.IsType(t, aws.NopRetryer{}, awsConfig.Retryer())
}

func TestLoadAWSConfig_RetryMaxAttempts(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	s := &Settings{RetryMaxAttempts: 4}

	awsConfig, err := s.LoadAWSConfig(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, awsConfig.RetryMaxAttempts)
	assert.Equal(t, aws.RetryModeStandard, awsConfig.RetryMode)
}
