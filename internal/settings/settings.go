package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/shield"
	"github.com/rs/zerolog"
)

var (
	DEFAULT_SHIELD_REGION string = "us-east-1"
	DEFAULT_LOG_LEVEL     string = "info"
)

// Settings holds the runtime knobs read from the function environment.
type Settings struct {
	ServiceName string
	LogLevel    string
	// Shield only serves its API from us-east-1, whatever region the function runs in.
	ShieldRegion string
	// Zero keeps the SDK default retryer.
	RetryMaxAttempts int
}

func setServiceName(s *Settings, envValue string) error {
	if envValue == "" {
		return errors.New("service name must not be empty")
	}

	s.ServiceName = envValue
	return nil
}

func setLogLevel(s *Settings, envValue string) error {
	if _, err := zerolog.ParseLevel(envValue); err != nil {
		return fmt.Errorf("failed to parse log level '%s': %w", envValue, err)
	}

	s.LogLevel = envValue
	return nil
}

func setShieldRegion(s *Settings, envValue string) error {
	if envValue == "" {
		return errors.New("shield region must not be empty")
	}

	s.ShieldRegion = envValue
	return nil
}

func setRetryMaxAttempts(s *Settings, envValue string) error {
	intValue, err := strconv.Atoi(envValue)
	if err != nil {
		return fmt.Errorf("failed to parse int value '%s': %w", envValue, err)
	}
	if intValue < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", intValue)
	}

	s.RetryMaxAttempts = intValue
	return nil
}

// Load builds Settings from defaults overridden by the environment.
func Load(serviceName string) (*Settings, error) {
	s := Settings{
		ServiceName:  serviceName,
		LogLevel:     DEFAULT_LOG_LEVEL,
		ShieldRegion: DEFAULT_SHIELD_REGION,
	}
	settingEnvs := map[string]func(*Settings, string) error{
		"SERVICE_NAME":       setServiceName,
		"LOG_LEVEL":          setLogLevel,
		"SHIELD_REGION":      setShieldRegion,
		"RETRY_MAX_ATTEMPTS": setRetryMaxAttempts,
	}

	for key, setFunc := range settingEnvs {
		envValue, found := os.LookupEnv(key)
		if found {
			if err := setFunc(&s, envValue); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}

	return &s, nil
}

// LoadAWSConfig resolves credentials and region the usual SDK way.
func (s *Settings) LoadAWSConfig(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if s.RetryMaxAttempts > 0 {
		opts = append(opts,
			config.WithRetryMode(aws.RetryModeStandard),
			config.WithRetryMaxAttempts(s.RetryMaxAttempts))
	}
	opts = append(opts, optFns...)

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load default config: %w", err)
	}

	return awsConfig, nil
}

// ShieldOptions pins a Shield client to ShieldRegion.
func (s *Settings) ShieldOptions(o *shield.Options) {
	o.Region = s.ShieldRegion
}

// WithoutRetries makes every SDK call a single attempt.
func WithoutRetries() func(*config.LoadOptions) error {
	return config.WithRetryer(func() aws.Retryer {
		return aws.NopRetryer{}
	})
}
