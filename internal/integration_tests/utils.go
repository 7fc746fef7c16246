package integrationtests

import (
	"context"
	"testing"

	"github.com/asafalina/s3-handler/pkg/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

const (
	minioUsername = "admin"
	minioPassword = "password"
)

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	minioContainer, err := minio.Run(
		ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")

	t.Cleanup(func() {
		err := minioContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate MinIO container")
	})

	connStr, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO connection string")

	return "http://" + connStr
}

// setupTestHandler starts a MinIO container and returns a handler connected
// to it, along with the underlying client for test-only calls like bucket
// creation.
func setupTestHandler(t *testing.T, ctx context.Context) (*storage.S3Handler, *s3.Client) {
	t.Helper()

	endpoint := setupMinioContainer(t, ctx)

	client, err := storage.NewS3Client(storage.S3ClientConfig{
		Endpoint:        endpoint,
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)

	return storage.NewS3HandlerFromClient(client), client
}

func createBucket(t *testing.T, ctx context.Context, client *s3.Client) string {
	t.Helper()

	bucket := "test-bucket-" + uuid.NewString()[:8]
	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	return bucket
}
