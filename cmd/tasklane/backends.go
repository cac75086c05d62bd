package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/awsadp"
	"github.com/mashiike/tasklane/redisadp"
	"github.com/redis/go-redis/v9"
)

type backends struct {
	Store        tasklane.TaskStore
	EventQueue   tasklane.EventQueue   // nil keeps the manager default
	PushNotifier tasklane.PushNotifier // nil keeps the manager default
	TaskLocker   tasklane.TaskLocker   // nil keeps the manager default

	closers []func() error
}

func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

func openBackends(ctx context.Context, cfg *config) (*backends, error) {
	b := &backends{}
	logger := slog.Default()

	var s3Client *s3.Client
	var sqsClient *sqs.Client
	loadAWS := func() error {
		if s3Client != nil {
			return nil
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client = s3.NewFromConfig(awsCfg)
		sqsClient = sqs.NewFromConfig(awsCfg)
		return nil
	}

	switch cfg.Store {
	case "memory":
		b.Store = tasklane.NewInMemoryTaskStore()
	case "fs":
		store, err := tasklane.NewFileSystemTaskStore(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		b.Store = store
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		b.closers = append(b.closers, client.Close)
		b.Store = redisadp.NewTaskStore(client, redisadp.WithLogger(logger))
		// streams must be visible to every replica that shares the store
		b.EventQueue = redisadp.NewEventQueue(client, redisadp.WithLogger(logger))
		b.TaskLocker = redisadp.NewTaskLocker(client, redisadp.WithLogger(logger))
	case "s3":
		if err := loadAWS(); err != nil {
			return nil, err
		}
		b.Store = awsadp.NewS3TaskStore(awsadp.S3TaskStoreConfig{
			Client: s3Client,
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Logger: logger,
		})
	}

	if cfg.Push == "sqs" {
		if err := loadAWS(); err != nil {
			b.Close()
			return nil, err
		}
		notifier, err := awsadp.NewSQSPushNotifier(ctx, awsadp.SQSPushNotifierConfig{
			Client:   sqsClient,
			QueueURL: cfg.SQSQueueURL,
			Logger:   logger,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.PushNotifier = notifier
	}
	logger.Debug("Opened backends", "store", cfg.Store, "push", cfg.Push)
	return b, nil
}
