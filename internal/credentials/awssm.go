package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/askdb/askdb/internal/config"
)

// AWSResolver reads tenant connection strings from AWS Secrets Manager under
// <prefix>/<tenant id>.
type AWSResolver struct {
	client *secretsmanager.Client
	prefix string
}

// NewAWSResolver creates a resolver using the default AWS credential chain.
func NewAWSResolver(cfg config.AWSCredsConfig) (*AWSResolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &AWSResolver{
		client: secretsmanager.NewFromConfig(awsCfg),
		prefix: cfg.Prefix,
	}, nil
}

func (r *AWSResolver) Resolve(ctx context.Context, tenantID string) (string, error) {
	name := r.prefix + "/" + tenantID

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", &NotFoundError{TenantID: tenantID}
		}
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}

	return *out.SecretString, nil
}
