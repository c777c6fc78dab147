package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mercator-hq/tablint/pkg/config"
)

// S3Client is the subset of the S3 API the sink uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads reports to a bucket. It is safe for concurrent use.
type S3 struct {
	client S3Client
	bucket string
	prefix string
}

// S3Option configures NewS3.
type S3Option func(*s3Options)

type s3Options struct {
	client        S3Client
	configOptions []func(*awsconfig.LoadOptions) error
}

// WithS3Client uses a pre-configured client. Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// WithS3ConfigOption adds an AWS config load option.
func WithS3ConfigOption(option func(*awsconfig.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.configOptions = append(o.configOptions, option)
	}
}

// NewS3 creates an S3 sink. Static credentials are used when both key
// fields are set; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg config.S3Config, opts ...S3Option) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidConfig)
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		loadOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}
		loadOptions = append(loadOptions, options.configOptions...)

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %v", ErrInvalidConfig, err)
		}

		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Key returns the object key a report named name is stored under.
func (s *S3) Key(name string) string {
	return path.Join(s.prefix, FileName(name))
}

func (s *S3) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := s.Key(name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put s3://%s/%s: %v", ErrWriteFailed, s.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
