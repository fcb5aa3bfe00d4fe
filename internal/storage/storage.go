package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrNotConfigured is returned by NoopStorage when object storage is disabled.
var ErrNotConfigured = errors.New("object storage not configured")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject uploads body under objectKey.
	PutObject(ctx context.Context, objectKey, contentType string, body io.Reader, size int64) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// NoopStorage is used when no bucket is configured; every call fails with ErrNotConfigured.
type NoopStorage struct{}

func (NoopStorage) PutObject(context.Context, string, string, io.Reader, int64) error {
	return ErrNotConfigured
}

func (NoopStorage) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (NoopStorage) DeleteObject(context.Context, string) error {
	return ErrNotConfigured
}
