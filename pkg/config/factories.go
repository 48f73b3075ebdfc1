package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/pkg/store"
	badgerStore "github.com/konkers/prolink-nfs/pkg/store/badger"
	localStore "github.com/konkers/prolink-nfs/pkg/store/local"
	memoryStore "github.com/konkers/prolink-nfs/pkg/store/memory"
	s3Store "github.com/konkers/prolink-nfs/pkg/store/s3"
)

// CreateStore builds the storage backend the Type field selects,
// decoding the matching options subsection.
func CreateStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory":
		return memoryStore.New(), nil
	case "local":
		return createLocalStore(cfg.Local)
	case "badger":
		return createBadgerStore(cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

func createLocalStore(options map[string]any) (store.Store, error) {
	type localOptions struct {
		Root string `mapstructure:"root"`
	}

	var opts localOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("decoding local store options: %w", err)
	}
	if opts.Root == "" {
		return nil, fmt.Errorf("local store: root is required")
	}

	s, err := localStore.New(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("creating local store: %w", err)
	}

	logger.Info("local store serving %s", opts.Root)
	return s, nil
}

func createBadgerStore(options map[string]any) (store.Store, error) {
	type badgerOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts badgerOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("decoding badger store options: %w", err)
	}
	if opts.Path == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}

	s, err := badgerStore.New(badgerStore.Options{Path: opts.Path, InMemory: opts.InMemory})
	if err != nil {
		return nil, fmt.Errorf("creating badger store: %w", err)
	}

	logger.Info("badger store at %s", opts.Path)
	return s, nil
}

func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	type s3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
	}

	var opts s3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("decoding S3 store options: %w", err)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("s3 store: region is required")
	}

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(opts.Region),
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		if opts.Endpoint != "" {
			// Custom endpoints are MinIO and friends, which want
			// path-style addressing.
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	s, err := s3Store.New(ctx, s3Store.Options{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("creating S3 store: %w", err)
	}

	logger.Info("S3 store serving bucket=%s prefix=%s", opts.Bucket, opts.KeyPrefix)
	return s, nil
}
