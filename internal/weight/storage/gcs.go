package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBlob is a single object in a Google Cloud Storage bucket.
type GCSBlob struct {
	client *storage.Client
	bucket string
	object string
}

func NewGCSBlob(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*GCSBlob, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCSBlob{
		client: client,
		bucket: bucket,
		object: object,
	}, nil
}

func (b *GCSBlob) Read(ctx context.Context) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gcs object %s: %w", b, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", b, err)
	}
	return content, nil
}

func (b *GCSBlob) Write(ctx context.Context, content []byte) error {
	w := b.client.Bucket(b.bucket).Object(b.object).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %s: %w", b, err)
	}
	// the object is only committed on Close
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit gcs object %s: %w", b, err)
	}
	return nil
}

func (b *GCSBlob) Close() error {
	return b.client.Close()
}

func (b *GCSBlob) String() string {
	return fmt.Sprintf("gs://%s/%s", b.bucket, b.object)
}
