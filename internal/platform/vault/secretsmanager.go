package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/spending-insight/backend/internal/config"
)

// SecretsManagerStore implements SecretStore on AWS Secrets Manager
type SecretsManagerStore struct {
	client *secretsmanager.Client
	logger *slog.Logger
}

// NewSecretsManagerStore builds a store using the default AWS credential
// chain, optionally pinned to the configured region.
func NewSecretsManagerStore(ctx context.Context, logger *slog.Logger, cfg *config.VaultConfig) (*SecretsManagerStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &SecretsManagerStore{
		client: secretsmanager.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// Get retrieves a secret value. Returns ErrSecretNotFound when the name is unknown.
func (s *SecretsManagerStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return "", ErrSecretNotFound
		}
		s.logger.Error("Failed to get secret", "name", name, "error", err)
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", ErrSecretNotFound
	}
	return *out.SecretString, nil
}

// Put writes a secret value, creating the secret when it does not exist yet
func (s *SecretsManagerStore) Put(ctx context.Context, name string, value string) error {
	_, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(value),
	})
	if err == nil {
		return nil
	}

	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		s.logger.Error("Failed to put secret value", "name", name, "error", err)
		return fmt.Errorf("failed to put secret %s: %w", name, err)
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		s.logger.Error("Failed to create secret", "name", name, "error", err)
		return fmt.Errorf("failed to create secret %s: %w", name, err)
	}
	return nil
}

// Delete removes a secret without a recovery window. A missing secret is not
// an error.
func (s *SecretsManagerStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(name),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return nil
		}
		s.logger.Error("Failed to delete secret", "name", name, "error", err)
		return fmt.Errorf("failed to delete secret %s: %w", name, err)
	}
	return nil
}
