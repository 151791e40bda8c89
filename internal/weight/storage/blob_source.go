package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/2beens/weightcontrol/internal/telemetry/tracing"
	"github.com/2beens/weightcontrol/internal/weight"

	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=blob_source_mocks_test.go -package=storage_test

// Blob is a single object holding the whole CSV dataset.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the whole content.
	Write(ctx context.Context, content []byte) error
	String() string
}

// BlobSource stores the dataset as CSV in a Blob.
type BlobSource struct {
	blob Blob
}

var _ weight.Source = (*BlobSource)(nil)

func NewBlobSource(blob Blob) *BlobSource {
	return &BlobSource{
		blob: blob,
	}
}

func (s *BlobSource) LoadEntries(ctx context.Context) (_ []weight.Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.blob.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("blob", s.blob.String()))

	content, err := s.blob.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	span.SetAttributes(attribute.Int("bytes", len(content)))

	entries, err := DecodeEntries(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return entries, nil
}

func (s *BlobSource) SaveEntries(ctx context.Context, entries []weight.Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.blob.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("blob", s.blob.String()),
		attribute.Int("entries", len(entries)),
	)

	var buf bytes.Buffer
	if err := EncodeEntries(&buf, entries); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := s.blob.Write(ctx, buf.Bytes()); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *BlobSource) String() string {
	return s.blob.String()
}
