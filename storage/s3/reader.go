package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sagarc03/davgate"
)

// rangeReader is an io.ReadSeekCloser over one S3 object.
// Seeking only moves the offset; the next Read opens a ranged GetObject.
type rangeReader struct {
	ctx    context.Context
	client Client
	bucket string
	key    string
	size   int64

	offset int64
	body   io.ReadCloser
}

func (r *rangeReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}

	if r.body == nil {
		out, err := r.client.GetObject(r.ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", r.offset)),
		})
		if err != nil {
			if isNotFound(err) {
				return 0, davgate.ErrNotFound
			}
			return 0, fmt.Errorf("failed to get object from S3: %w", err)
		}
		r.body = out.Body
	}

	n, err := r.body.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *rangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("s3 reader: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("s3 reader: negative position")
	}

	if abs != r.offset {
		if err := r.closeBody(); err != nil {
			return 0, err
		}
		r.offset = abs
	}
	return abs, nil
}

func (r *rangeReader) closeBody() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}

func (r *rangeReader) Close() error {
	return r.closeBody()
}
