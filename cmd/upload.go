package cmd

import (
	"context"
	"fmt"

	"db-vault/internal/storage"
)

// uploadIfRequested pushes a finished artifact to S3 when --upload is set.
// The local file is already written, so a failure here only fails the exit code.
func uploadIfRequested(ctx context.Context, path string) error {
	if !upload {
		return nil
	}
	cfg := S3Settings()
	uploader, err := storage.NewS3Uploader(ctx, cfg, Log)
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", path, err)
	}
	key, err := uploader.Upload(ctx, path)
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", path, err)
	}
	fmt.Printf("Uploaded to s3://%s/%s\n", cfg.Bucket, key)
	return nil
}
