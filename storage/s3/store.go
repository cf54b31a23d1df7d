// Package s3 provides an Amazon S3 (or S3-compatible) object store for davgate.
//
// Keys map one to one onto S3 object keys below an optional prefix.
// Collection markers are zero-byte objects whose key ends in "/", the same
// convention the S3 console uses for folders. Reads are served through a
// seekable reader that issues ranged GetObject requests, so clients can
// resume and seek without downloading whole objects.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/davgate"
)

// Client is the subset of *s3.Client the store uses.
type Client interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements davgate.ObjectStore on an S3 bucket.
// It is safe for concurrent use.
type Store struct {
	client    Client
	bucket    string
	keyPrefix string
}

// NewStore creates a Store for bucket. keyPrefix, when set, is prepended to
// every key, which lets several gateways share one S3 bucket.
func NewStore(client Client, bucket, keyPrefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	return &Store{client: client, bucket: bucket, keyPrefix: keyPrefix}, nil
}

func (s *Store) objectKey(key string) string {
	return s.keyPrefix + key
}

// isNotFound reports whether err is S3's way of saying the key is absent.
// HeadObject answers with a bare 404 "NotFound"; GetObject with "NoSuchKey".
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Head returns metadata for key.
func (s *Store) Head(ctx context.Context, key string) (davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return davgate.ObjectInfo{}, davgate.ErrNotFound
		}
		return davgate.ObjectInfo{}, fmt.Errorf("failed to head object: %w", err)
	}

	return davgate.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  contentType(key, aws.ToString(out.ContentType)),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		LastModified: aws.ToTime(out.LastModified).UTC(),
	}, nil
}

// Get returns a seekable reader over key. Nothing is downloaded until the
// first Read, and every Seek restarts the download at the new offset.
func (s *Store) Get(ctx context.Context, key string) (davgate.ObjectInfo, io.ReadCloser, error) {
	if strings.HasSuffix(key, "/") {
		return davgate.ObjectInfo{}, nil, davgate.ErrNotFound
	}

	info, err := s.Head(ctx, key)
	if err != nil {
		return davgate.ObjectInfo{}, nil, err
	}

	return info, &rangeReader{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    s.objectKey(key),
		size:   info.Size,
	}, nil
}

// Put uploads content to key. The body is spooled to a temp file first so
// the upload has a known length and can be retried by the SDK.
func (s *Store) Put(ctx context.Context, key string, contentType string, content io.Reader) (davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, err
	}

	if strings.HasSuffix(key, "/") {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(s.objectKey(key)),
			Body:          strings.NewReader(""),
			ContentLength: aws.Int64(0),
			ContentType:   aws.String(davgate.CollectionContentType),
		})
		if err != nil {
			return davgate.ObjectInfo{}, fmt.Errorf("failed to write marker to S3: %w", err)
		}
		return s.Head(ctx, key)
	}

	spool, err := os.CreateTemp("", "davgate-s3-*")
	if err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	size, err := io.Copy(spool, content)
	if err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("spool content: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("rewind spool file: %w", err)
	}

	if contentType == "" {
		contentType = davgate.DefaultContentType
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          spool,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("failed to write content to S3: %w", err)
	}

	return s.Head(ctx, key)
}

// Delete removes key. S3 deletes are silent about missing keys, so existence
// is checked first.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.Head(ctx, key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List pages through every object under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})

	entries := make([]davgate.ObjectInfo, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix)
			if key == "" {
				continue
			}
			entries = append(entries, davgate.ObjectInfo{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				ContentType:  contentType(key, ""),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified).UTC(),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries, nil
}

// contentType prefers the stored type and falls back to the key's extension.
// Listings carry no content type at all.
func contentType(key, stored string) string {
	if strings.HasSuffix(key, "/") {
		return davgate.CollectionContentType
	}
	if stored != "" {
		return stored
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return davgate.DefaultContentType
}
