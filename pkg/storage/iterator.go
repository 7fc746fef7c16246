package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// iterKeysPageSize is the number of keys requested per ListObjectsV2 call
// when iterating keys. The service may return fewer per page; the
// truncation flag decides whether another page exists.
const iterKeysPageSize = 10000

// KeyIterator is a lazy sequence of keys or directory prefixes, consumed
// with a range loop. Pages are fetched from S3 only as the loop advances,
// and no further calls are made once the loop breaks. A non-nil err means
// a listing call failed and the sequence ends there.
type KeyIterator func(yield func(key string, err error) bool)

// IterDirs yields every virtual directory under the given prefix,
// depth-first: each common prefix is yielded as soon as it is seen, then
// its own subdirectories, before moving on to the next prefix of the same
// page. Directories are detected with delimiter listings, so a bucket with
// keys "a/b" and "a/c" yields only "a/".
func (h *S3Handler) IterDirs(ctx context.Context, bucket, prefix string) KeyIterator {
	return func(yield func(key string, err error) bool) {
		// Each frame is one directory listing in progress. The explicit
		// stack replaces recursive descent: subdirectories found on a page
		// are fully traversed before the next page of their parent is
		// fetched.
		type frame struct {
			prefix  string
			token   string
			pending []string
			more    bool
		}

		stack := []frame{{prefix: prefix, more: true}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if len(top.pending) == 0 {
				if !top.more {
					stack = stack[:len(stack)-1]
					continue
				}

				input := &s3.ListObjectsV2Input{
					Bucket:    aws.String(bucket),
					Prefix:    aws.String(top.prefix),
					Delimiter: aws.String("/"),
				}
				if top.token != "" {
					input.ContinuationToken = aws.String(top.token)
				}

				page, err := h.client.ListObjectsV2(ctx, input)
				if err != nil {
					yield("", fmt.Errorf("failed to list directories in s3://%s/%s: %w", bucket, top.prefix, err))
					return
				}

				for _, commonPrefix := range page.CommonPrefixes {
					top.pending = append(top.pending, aws.ToString(commonPrefix.Prefix))
				}

				// A page can carry no common prefixes and still point at
				// further pages.
				top.token = aws.ToString(page.NextContinuationToken)
				top.more = top.token != ""

				continue
			}

			dir := top.pending[0]
			top.pending = top.pending[1:]

			if !yield(dir, nil) {
				return
			}

			stack = append(stack, frame{prefix: dir, more: true})
		}
	}
}

// IterKeys yields every key under the given prefix in listing order,
// fetching pages on demand. Paging advances with a start-after cursor set
// to the last key of the previous page.
func (h *S3Handler) IterKeys(ctx context.Context, bucket, prefix string) KeyIterator {
	return func(yield func(key string, err error) bool) {
		startAfter := ""

		for {
			input := &s3.ListObjectsV2Input{
				Bucket:  aws.String(bucket),
				Prefix:  aws.String(prefix),
				MaxKeys: aws.Int32(iterKeysPageSize),
			}
			if startAfter != "" {
				input.StartAfter = aws.String(startAfter)
			}

			page, err := h.client.ListObjectsV2(ctx, input)
			if err != nil {
				yield("", fmt.Errorf("failed to list keys in s3://%s/%s: %w", bucket, prefix, err))
				return
			}

			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if !yield(key, nil) {
					return
				}
				startAfter = key
			}

			// A full page with the truncation flag unset is still the last
			// page.
			if !aws.ToBool(page.IsTruncated) {
				return
			}
		}
	}
}

// ListKeys collects every key under the given prefix into memory. Use
// IterKeys for prefixes too large to hold at once.
func (h *S3Handler) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for key, err := range h.IterKeys(ctx, bucket, prefix) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}
