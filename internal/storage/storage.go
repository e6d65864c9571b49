// Package storage archives uploaded certificate files to Google Cloud
// Storage so verification requests can be audited later.
package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// Client saves raw bytes under a bucket/object pair. The interface exists so
// tests can substitute a mock store.
type Client interface {
	SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error
}

type gcsClient struct {
	storageClient *storage.Client
}

// New wraps a GCS client.
func New(storageClient *storage.Client) Client {
	return &gcsClient{storageClient: storageClient}
}

func (s *gcsClient) SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error {
	writer := s.storageClient.Bucket(bucketName).Object(objectName).NewWriter(ctx)

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// ObjectName derives a collision-free archive name for an upload from its
// arrival time and content hash.
func ObjectName(prefix string, at time.Time, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s/%s-%x", prefix, at.UTC().Format("20060102T150405"), sum[:8])
}
