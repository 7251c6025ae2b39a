package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrInvalidS3Config is returned when the S3 backend configuration is incomplete.
var ErrInvalidS3Config = errors.New("source: invalid s3 configuration")

// S3Config configures the S3 backend.
// Without static keys the default AWS credential chain is used.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Prefix    string `env:"PREFIX"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Name      string `env:"NAME" envDefault:"s3"`
	PathStyle bool   `env:"PATH_STYLE" envDefault:"false"`
}

// S3 loads templates stored as objects under a bucket prefix.
type S3 struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3 creates an S3 backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidS3Config)
	}
	if cfg.Name == "" {
		cfg.Name = "s3"
	}

	opts := func(o *s3.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		}
	}

	if cfg.AccessKey != "" {
		client := s3.New(s3.Options{
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}, opts)
		return &S3{client: client, cfg: cfg}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidS3Config, err)
	}
	return &S3{client: s3.NewFromConfig(awsCfg, opts), cfg: cfg}, nil
}

// Name implements Backend.
func (b *S3) Name() string { return b.cfg.Name }

// Load implements Backend.
func (b *S3) Load(ctx context.Context, id string) (string, error) {
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, id)
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", notFound(id)
		}
		return "", fmt.Errorf("get object %s: %w", b.key(id), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", b.key(id), err)
	}

	return string(data), nil
}

func (b *S3) key(id string) string {
	if b.cfg.Prefix == "" {
		return id
	}
	return path.Join(b.cfg.Prefix, id)
}

// isNotFound checks both API error codes and typed errors.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var noKey *types.NoSuchKey
	return errors.As(err, &noKey)
}

var _ Backend = (*S3)(nil)
