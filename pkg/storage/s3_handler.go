// Package storage wraps the AWS S3 client with convenience operations on
// objects and prefixes, from whole-object reads and writes up to lazy
// iteration over keys and virtual directories.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Handler struct {
	client     S3Api
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

// NewS3Handler connects to S3 using the given config. Use
// NewS3HandlerFromClient to supply an already constructed client instead.
func NewS3Handler(cfg S3ClientConfig) (*S3Handler, error) {
	client, err := NewS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	return NewS3HandlerFromClient(client), nil
}

func NewS3HandlerFromClient(client S3Api) *S3Handler {
	return &S3Handler{
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
	}
}

// OpenObject returns a stream over the contents of s3://bucket/key. The
// caller must close it.
func (h *S3Handler) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object s3://%s/%s: %w", bucket, key, err)
	}

	return resp.Body, nil
}

// GetObject reads the full contents of s3://bucket/key into memory.
func (h *S3Handler) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := h.OpenObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object s3://%s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (h *S3Handler) GetObjectText(ctx context.Context, bucket, key string) (string, error) {
	data, err := h.GetObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// PutObject writes data to s3://bucket/key, using multipart upload for
// large payloads.
func (h *S3Handler) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	_, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to s3://%s/%s: %w", bucket, key, err)
	}
	slog.Info("Object uploaded successfully", "bucket", bucket, "key", key)

	return nil
}

func (h *S3Handler) PutObjectText(ctx context.Context, bucket, key, content string) error {
	return h.PutObject(ctx, bucket, key, strings.NewReader(content))
}

// CopyObject copies a single object between buckets, or within one, without
// fetching its contents.
func (h *S3Handler) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := h.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + srcKey),
	})
	if err != nil {
		return fmt.Errorf("failed to copy s3://%s/%s to s3://%s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}
	slog.Info("Object copied successfully", "bucket", srcBucket, "key", srcKey, "dest_bucket", dstBucket, "dest_key", dstKey)

	return nil
}

// DownloadFile downloads s3://bucket/key to localPath, creating parent
// directories as needed.
func (h *S3Handler) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for download %s: %w", filepath.Dir(localPath), err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = h.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download object s3://%s/%s to %s: %w", bucket, key, localPath, err)
	}
	slog.Info("Object downloaded successfully", "bucket", bucket, "key", key, "path", localPath)

	return nil
}

// UploadFile uploads the file at localPath to s3://bucket/key.
func (h *S3Handler) UploadFile(ctx context.Context, localPath, bucket, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	return h.PutObject(ctx, bucket, key, file)
}

func (h *S3Handler) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object s3://%s/%s: %w", bucket, key, err)
	}
	slog.Info("Object deleted successfully", "bucket", bucket, "key", key)

	return nil
}

// ObjectSize returns the size in bytes of s3://bucket/key without fetching
// its contents.
func (h *S3Handler) ObjectSize(ctx context.Context, bucket, key string) (int64, error) {
	headObj, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get object size s3://%s/%s: %w", bucket, key, err)
	}

	return aws.ToInt64(headObj.ContentLength), nil
}

// ListBuckets returns the names of all buckets owned by the caller.
func (h *S3Handler) ListBuckets(ctx context.Context) ([]string, error) {
	resp, err := h.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	names := make([]string, 0, len(resp.Buckets))
	for _, bucket := range resp.Buckets {
		names = append(names, aws.ToString(bucket.Name))
	}

	return names, nil
}
