package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveBlob is a single Google Drive file, addressed by its file ID.
type DriveBlob struct {
	service *drive.Service
	fileID  string
}

// NewDriveBlobFromCredentials authenticates with a service account JSON key.
// Requests to the Drive API are traced.
func NewDriveBlobFromCredentials(ctx context.Context, fileID string, credentialsJson []byte) (*DriveBlob, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJson, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: creds.TokenSource,
			Base:   otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	return NewDriveBlob(ctx, fileID, option.WithHTTPClient(httpClient))
}

func NewDriveBlob(ctx context.Context, fileID string, opts ...option.ClientOption) (*DriveBlob, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	return &DriveBlob{
		service: driveService,
		fileID:  fileID,
	}, nil
}

func (b *DriveBlob) Read(ctx context.Context) ([]byte, error) {
	resp, err := b.service.Files.
		Get(b.fileID).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("download drive file %s: %w", b.fileID, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive file %s: %w", b.fileID, err)
	}
	return content, nil
}

func (b *DriveBlob) Write(ctx context.Context, content []byte) error {
	_, err := b.service.Files.
		Update(b.fileID, &drive.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType("text/csv")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update drive file %s: %w", b.fileID, err)
	}
	return nil
}

func (b *DriveBlob) String() string {
	return "drive:" + b.fileID
}
