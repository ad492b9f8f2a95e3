// Package storage uploads backup artifacts to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// S3Config holds the s3.* settings.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
	Prefix    string
}

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts local files under a key prefix in one bucket.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	log    logrus.FieldLogger
}

// NewS3Uploader builds an uploader with static credentials. With an endpoint set,
// the region is optional and requests go to that S3-compatible server.
func NewS3Uploader(ctx context.Context, cfg S3Config, log logrus.FieldLogger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3.bucket is required for upload")
	}

	var sdkOptions []func(*awsconfig.LoadOptions) error
	if cfg.AccessKey != "" {
		sdkOptions = append(sdkOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	region := cfg.Region
	if region == "" && cfg.Endpoint != "" {
		region = "us-east-1"
	}
	if region != "" {
		sdkOptions = append(sdkOptions, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, sdkOptions...)
	if err != nil {
		return nil, fmt.Errorf("AWS SDK config initialization error: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Prefix, log), nil
}

func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string, log logrus.FieldLogger) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix, log: log}
}

// ObjectKey places the file's base name under prefix.
func ObjectKey(prefix, localPath string) string {
	name := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Upload sends localPath to the bucket and returns the object key.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	start := time.Now()
	key := ObjectKey(u.prefix, localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for S3 upload: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, u.bucket, key, err)
	}

	u.log.WithFields(logrus.Fields{
		"bucket":   u.bucket,
		"key":      key,
		"size":     humanize.Bytes(uint64(info.Size())),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Uploaded artifact to S3")
	return key, nil
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return "application/json"
	case ".sql":
		return "application/sql"
	default:
		return "application/octet-stream"
	}
}
