package export

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// S3Config locates the export bucket endpoint and credentials.
// Empty keys fall back to the default AWS credential chain.
type S3Config struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle       bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
}

// PutObjectAPI is the part of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes export payloads to S3
type S3Uploader struct {
	client PutObjectAPI
	logger *zap.Logger
}

// NewS3Uploader loads the AWS configuration and builds a client
func NewS3Uploader(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Export("failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewS3UploaderWithClient(client, logger), nil
}

// NewS3UploaderWithClient wraps an existing client
func NewS3UploaderWithClient(client PutObjectAPI, logger *zap.Logger) *S3Uploader {
	return &S3Uploader{client: client, logger: logging.OrNop(logger)}
}

// Upload puts data at an s3://bucket/key location
func (u *S3Uploader) Upload(ctx context.Context, location string, data []byte, contentType string) error {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"generator": "crossmarket",
		},
	})
	if err != nil {
		return errors.Export("failed to upload to S3", err).
			WithContext("bucket", bucket).
			WithContext("key", key)
	}

	u.logger.Info("export uploaded",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)))
	return nil
}

// IsS3URL reports whether dest names an S3 object
func IsS3URL(dest string) bool {
	return strings.HasPrefix(dest, "s3://")
}

// ParseS3URL splits s3://bucket/key
func ParseS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", errors.Newf(errors.TypeExport, "not an s3 location: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.Newf(errors.TypeExport, "s3 location needs a bucket and an object key: %q", location)
	}
	return bucket, key, nil
}
