package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object storage operations the submission
// archive flow needs.
type ObjectStorage interface {
	// PutObject stores an object of a known size.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
}
