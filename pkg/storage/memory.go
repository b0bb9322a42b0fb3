package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryClient is an in-memory S3Client for tests and local development.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// FailKeys forces Download to error for matching keys, to exercise
	// source-unavailable paths in tests.
	FailKeys map[string]bool
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		objects:  make(map[string][]byte),
		FailKeys: make(map[string]bool),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (c *MemoryClient) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[objectKey(bucket, key)] = data
	return nil
}

func (c *MemoryClient) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.FailKeys[key] {
		return nil, fmt.Errorf("storage unavailable for %s", key)
	}
	data, ok := c.objects[objectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *MemoryClient) Delete(ctx context.Context, bucket, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, objectKey(bucket, key))
	return nil
}

func (c *MemoryClient) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return "memory://" + objectKey(bucket, key), nil
}
