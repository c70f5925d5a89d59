package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the subset of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader implements Loader for catalog snapshots stored in AWS S3.
type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a new S3-based catalog loader using the default AWS
// credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 catalog loader initialised")

	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient creates an S3 loader around an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "s3-catalog-loader").Logger(),
	}
}

// Load reads the snapshot object at key. Keys ending in .gz are decompressed.
func (l *s3Loader) Load(ctx context.Context, key string) (Catalog, error) {
	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("loading catalog snapshot from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	c, err := decode(result.Body, strings.HasSuffix(key, ".gz"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode S3 catalog snapshot %s: %w", key, err)
	}

	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Int("products_loaded", c.Size()).
		Msg("catalog snapshot loaded from S3")

	return c, nil
}

// FallbackLoader tries the remote snapshot, then a local file, and finally
// the bundled dataset. It never fails.
type FallbackLoader struct {
	s3Loader   Loader
	fileLoader Loader
	s3Key      string
	localPath  string
	logger     zerolog.Logger
}

// NewFallbackLoader creates a loader over the three catalog sources. s3Loader
// and fileLoader may be nil; an empty s3Key or localPath skips that source.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Key, localPath string, logger zerolog.Logger) *FallbackLoader {
	return &FallbackLoader{
		s3Loader:   s3Loader,
		fileLoader: fileLoader,
		s3Key:      s3Key,
		localPath:  localPath,
		logger:     logger.With().Str("component", "catalog-fallback-loader").Logger(),
	}
}

// Load returns the first catalog that loads successfully.
func (l *FallbackLoader) Load(ctx context.Context) Catalog {
	if l.s3Loader != nil && l.s3Key != "" {
		c, err := l.s3Loader.Load(ctx, l.s3Key)
		if err == nil {
			return c
		}
		l.logger.Warn().
			Err(err).
			Str("s3_key", l.s3Key).
			Msg("failed to load catalog from S3, falling back")
	}

	if l.fileLoader != nil && l.localPath != "" {
		c, err := l.fileLoader.Load(ctx, l.localPath)
		if err == nil {
			return c
		}
		l.logger.Warn().
			Err(err).
			Str("file_path", l.localPath).
			Msg("failed to load catalog file, using bundled dataset")
	}

	c := Bundled()
	l.logger.Info().Int("products", c.Size()).Msg("using bundled catalog")
	return c
}
