package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DeleteObjects removes every object under the given prefix.
func (h *S3Handler) DeleteObjects(ctx context.Context, bucket, prefix string) error {
	for key, err := range h.IterKeys(ctx, bucket, prefix) {
		if err != nil {
			return fmt.Errorf("failed to iterate objects in s3://%s/%s: %w", bucket, prefix, err)
		}

		_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete object s3://%s/%s: %w", bucket, key, err)
		}
	}

	slog.Info("Objects deleted successfully", "bucket", bucket, "prefix", prefix)

	return nil
}

// DownloadDir downloads every object under the given prefix into dest,
// recreating the key hierarchy as local directories.
func (h *S3Handler) DownloadDir(ctx context.Context, bucket, prefix, dest string) error {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	for key, err := range h.IterKeys(ctx, bucket, prefix) {
		if err != nil {
			return fmt.Errorf("error downloading directory s3://%s/%s to %s: %w", bucket, prefix, dest, err)
		}

		// Zero-byte directory marker keys have no file to write.
		if strings.HasSuffix(key, "/") {
			continue
		}

		localPath := filepath.Join(dest, filepath.FromSlash(strings.TrimPrefix(key, prefix)))

		if err := h.DownloadFile(ctx, bucket, key, localPath); err != nil {
			return fmt.Errorf("error downloading directory s3://%s/%s to %s: %w", bucket, prefix, dest, err)
		}
	}

	return nil
}

// UploadDir uploads every file under src to the given prefix, mirroring the
// local directory layout in the keys.
func (h *S3Handler) UploadDir(ctx context.Context, bucket, prefix, src string) error {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk directory %s: %w", src, err)
		}

		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s in %s: %w", path, src, err)
		}

		return h.UploadFile(ctx, path, bucket, prefix+filepath.ToSlash(rel))
	})
	if err != nil {
		return fmt.Errorf("error uploading directory %s to s3://%s/%s: %w", src, bucket, prefix, err)
	}

	return nil
}
