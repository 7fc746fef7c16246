package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePrefixClient backs list, get, put and delete calls with an in-memory
// key to content map.
type fakePrefixClient struct {
	S3Api

	objects map[string]string
	deleted []string
	puts    map[string]string
}

func (f *fakePrefixClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) && key > aws.ToString(in.StartAfter) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(f.objects[key])))})
	}

	return out, nil
}

func (f *fakePrefixClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", aws.ToString(in.Key))
	}
	return &s3.GetObjectOutput{
		Body:          &stringReadCloser{strings.NewReader(body)},
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func (f *fakePrefixClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakePrefixClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Handler_DeleteObjects(t *testing.T) {
	fake := &fakePrefixClient{objects: map[string]string{
		"logs/a.txt":    "a",
		"logs/b.txt":    "b",
		"data/keep.txt": "keep",
	}}
	handler := NewS3HandlerFromClient(fake)

	err := handler.DeleteObjects(context.Background(), "test-bucket", "logs/")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"logs/a.txt", "logs/b.txt"}, fake.deleted)
	assert.Contains(t, fake.objects, "data/keep.txt")
}

func TestS3Handler_UploadDir(t *testing.T) {
	srcDir := t.TempDir()
	files := []string{"file1.txt", filepath.Join("sub", "file2.txt")}
	for _, file := range files {
		path := filepath.Join(srcDir, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
		require.NoError(t, os.WriteFile(path, []byte("content of "+file), os.ModePerm))
	}

	fake := &fakePrefixClient{}
	handler := NewS3HandlerFromClient(fake)

	err := handler.UploadDir(context.Background(), "test-bucket", "backup", srcDir)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"backup/file1.txt":     "content of file1.txt",
		"backup/sub/file2.txt": "content of " + filepath.Join("sub", "file2.txt"),
	}, fake.puts)
}

func TestS3Handler_UploadDir_EmptyPrefix(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "file1.txt"), []byte("content"), os.ModePerm))

	fake := &fakePrefixClient{}
	handler := NewS3HandlerFromClient(fake)

	err := handler.UploadDir(context.Background(), "test-bucket", "", srcDir)
	require.NoError(t, err)

	// Keys must not gain a leading slash when no prefix is given.
	assert.Equal(t, map[string]string{"file1.txt": "content"}, fake.puts)
}

func TestS3Handler_DownloadDir(t *testing.T) {
	fake := &fakePrefixClient{objects: map[string]string{
		"backup/file1.txt":     "one",
		"backup/sub/file2.txt": "two",
		"backup/empty/":        "",
	}}
	handler := NewS3HandlerFromClient(fake)

	dest := filepath.Join(t.TempDir(), "restore")
	err := handler.DownloadDir(context.Background(), "test-bucket", "backup", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "file1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "sub", "file2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// Directory marker keys produce no local files.
	_, err = os.Stat(filepath.Join(dest, "empty"))
	assert.True(t, os.IsNotExist(err))
}
