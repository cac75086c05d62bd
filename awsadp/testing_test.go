package awsadp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// testingConfig provides configuration for testing with minio and ElasticMQ
type testingConfig struct {
	Endpoint        string // e.g., "http://localhost:9000"
	AccessKeyID     string // e.g., "minioadmin"
	SecretAccessKey string // e.g., "minioadmin"
	Bucket          string // e.g., "tasklane-test"
	Region          string // e.g., "us-east-1" (minio default)
	SQSEndpoint     string // e.g., "http://localhost:9324"
}

func defaultTestingConfig() testingConfig {
	return testingConfig{
		Endpoint:        os.Getenv("MINIO_ENDPOINT"),
		AccessKeyID:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretAccessKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:          getEnv("MINIO_BUCKET", "tasklane-test"),
		Region:          getEnv("MINIO_REGION", "us-east-1"),
		SQSEndpoint:     os.Getenv("ELASTICMQ_ENDPOINT"),
	}
}

// skipUnlessIntegration skips the test unless endpoint points at a running service
func skipUnlessIntegration(t *testing.T, endpoint, envName string) {
	t.Helper()
	if testing.Short() || os.Getenv("SKIP_INTEGRATION_TESTS") == "true" {
		t.Skip("Integration tests are disabled")
	}
	if endpoint == "" {
		t.Skipf("%s is not set", envName)
	}
}

func loadTestingAWSConfig(ctx context.Context, cfg testingConfig) (aws.Config, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

func newS3ClientForTesting(ctx context.Context, cfg testingConfig) (*s3.Client, error) {
	awsCfg, err := loadTestingAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for minio
	}), nil
}

func newSQSClientForTesting(ctx context.Context, cfg testingConfig) (*sqs.Client, error) {
	awsCfg, err := loadTestingAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = aws.String(cfg.SQSEndpoint)
	}), nil
}

func ensureBucketExists(ctx context.Context, client *s3.Client, bucket string) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// cleanupTestObjects removes all objects with the given prefix
func cleanupTestObjects(ctx context.Context, client *s3.Client, bucket, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects for cleanup: %w", err)
		}
		for _, obj := range page.Contents {
			if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			}); err != nil {
				return fmt.Errorf("failed to delete object %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func generateRandomPrefix() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "test-" + hex.EncodeToString(bytes), nil
}
