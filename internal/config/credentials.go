package config

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables carrying broker credentials
const (
	EnvBrokerLogin    = "BROKER_LOGIN"
	EnvBrokerPassword = "BROKER_PASSWORD"
	EnvBrokerServer   = "BROKER_SERVER"

	envSecretsEnabled = "AWS_SECRETS_ENABLED"
	envSecretsRegion  = "AWS_REGION"
	envSecretsName    = "AWS_SECRET_NAME"
)

// LoadCredentials overlays broker credentials onto the configuration.
// Variables from the given .env files are loaded first without overriding the
// process environment; missing files are ignored. When AWS_SECRETS_ENABLED is
// true the AWS Secrets Manager overlay is applied last.
func LoadCredentials(ctx context.Context, cfg *Config, envFiles ...string) error {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
	}

	if v := os.Getenv(EnvBrokerLogin); v != "" {
		cfg.Broker.Login = v
	}
	if v := os.Getenv(EnvBrokerPassword); v != "" {
		cfg.Broker.Password = v
	}
	if v := os.Getenv(EnvBrokerServer); v != "" {
		cfg.Broker.Server = v
	}

	if os.Getenv(envSecretsEnabled) != "true" {
		return nil
	}
	region := os.Getenv(envSecretsRegion)
	name := os.Getenv(envSecretsName)
	if region == "" || name == "" {
		return fmt.Errorf("%s and %s are required when %s=true", envSecretsRegion, envSecretsName, envSecretsEnabled)
	}
	return LoadSecretsFromAWS(ctx, cfg, region, name)
}
