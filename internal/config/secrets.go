package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// kmsClient defines the minimal subset of the KMS client used for secret
// resolution.
type kmsClient interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// ResolveSecrets decrypts the sensitive config fields in place when
// secrets_mode is "kms". It runs exactly once, before the pipeline is built;
// fetch and persistence code never re-resolves secrets per call.
//
// Ciphertext values are base64 and are decrypted with an encryption context
// binding them to the deployed function's identity
// ({"LambdaFunctionName": $AWS_LAMBDA_FUNCTION_NAME}).
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.SecretsMode != SecretsModeKMS {
		return nil
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config for kms: %w", err)
	}
	return c.resolveSecretsWith(ctx, kms.NewFromConfig(awsCfg))
}

func (c *Config) resolveSecretsWith(ctx context.Context, client kmsClient) error {
	encCtx := map[string]string{
		"LambdaFunctionName": os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"as_baseurl", &c.ArchiveBaseURL},
		{"as_username", &c.ArchiveUsername},
		{"as_password", &c.ArchivePassword},
		{"cartographer_baseurl", &c.CartographerBaseURL},
		{"teams_url", &c.TeamsURL},
		{"bucket_name", &c.BucketName},
		{"access_key_id", &c.AccessKeyID},
		{"secret_access_key", &c.SecretAccessKey},
	}

	for _, f := range fields {
		if strings.TrimSpace(*f.value) == "" {
			continue
		}
		plain, err := decryptValue(ctx, client, *f.value, encCtx)
		if err != nil {
			return fmt.Errorf("resolve secret %s: %w", f.name, err)
		}
		*f.value = plain
	}
	return nil
}

func decryptValue(ctx context.Context, client kmsClient, ciphertext string, encCtx map[string]string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	out, err := client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: encCtx,
	})
	if err != nil {
		return "", fmt.Errorf("kms decrypt: %w", err)
	}
	return string(out.Plaintext), nil
}
