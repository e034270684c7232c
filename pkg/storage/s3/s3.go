// Package s3 publishes conversion artifacts to S3 or an S3-compatible store.
package s3

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	// Bucket receives the uploads.
	Bucket string

	// Prefix is prepended to every object key.
	Prefix string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	UploadTimeout time.Duration
	Concurrency   int
}

// DefaultConfig returns sensible defaults for S3 configuration.
func DefaultConfig(bucket, region string) Config {
	return Config{
		Bucket:        bucket,
		Region:        region,
		UploadTimeout: 5 * time.Minute,
		Concurrency:   4,
	}
}

// PutObjectAPI is the slice of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads files under a key prefix.
type Client struct {
	cfg    Config
	api    PutObjectAPI
	logger *zap.Logger
}

// Uploaded describes one published object.
type Uploaded struct {
	Path string
	Key  string
	Size int64
}

// NewClient creates an S3-backed client from the default AWS credential
// chain, or from static credentials when both key fields are set.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, rferrors.New(rferrors.CodeConfig, "publish bucket is not set")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewClientWithAPI(cfg, s3.NewFromConfig(awsCfg, s3Opts...), logger), nil
}

// NewClientWithAPI wraps an existing PutObject implementation.
func NewClientWithAPI(cfg Config, api PutObjectAPI, logger *zap.Logger) *Client {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, api: api, logger: logger}
}

// Bucket returns the target bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// ObjectKey returns the key for rel, a slash- or OS-separated relative path.
func (c *Client) ObjectKey(rel string) string {
	rel = filepath.ToSlash(rel)
	if c.cfg.Prefix == "" {
		return rel
	}
	return path.Join(strings.Trim(c.cfg.Prefix, "/"), rel)
}

// Upload puts one local file under key.
func (c *Client) Upload(ctx context.Context, localPath, key string) (Uploaded, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Uploaded{}, rferrors.Wrapf(err, rferrors.CodePublishFailed, "open %s", localPath)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Uploaded{}, rferrors.Wrapf(err, rferrors.CodePublishFailed, "stat %s", localPath)
	}

	if c.cfg.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.UploadTimeout)
		defer cancel()
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(ContentType(localPath)),
	})
	if err != nil {
		return Uploaded{}, rferrors.Wrapf(err, rferrors.CodePublishFailed, "put s3://%s/%s", c.cfg.Bucket, key)
	}

	c.logger.Debug("uploaded", zap.String("key", key), zap.Int64("bytes", stat.Size()))
	return Uploaded{Path: localPath, Key: key, Size: stat.Size()}, nil
}

// UploadDir uploads every regular file under dir, keyed by its path
// relative to dir. Results are sorted by key.
func (c *Client) UploadDir(ctx context.Context, dir string) ([]Uploaded, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, rferrors.Wrapf(err, rferrors.CodePublishFailed, "scan %s", dir)
	}

	results := make([]Uploaded, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, p := range files {
		i, p := i, p
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			up, err := c.Upload(gctx, p, c.ObjectKey(rel))
			if err != nil {
				return err
			}
			results[i] = up
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	c.logger.Info("published",
		zap.String("bucket", c.cfg.Bucket),
		zap.Int("objects", len(results)),
	)
	return results, nil
}

// ContentType picks a MIME type from the artifact extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	case ".db":
		return "application/vnd.sqlite3"
	case ".ts":
		return "application/typescript"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
