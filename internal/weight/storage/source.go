package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/2beens/weightcontrol/internal/config"
	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewSource picks the entries backend from the config. The returned close func releases
// clients owned by the source (the db pool is owned by the server).
func NewSource(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool) (weight.Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage {
	case config.StorageFile:
		return NewBlobSource(NewFileBlob(cfg.EntriesPath)), noop, nil
	case config.StorageDrive:
		credentialsJson, err := os.ReadFile(cfg.DriveCredentialsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read drive credentials: %w", err)
		}
		driveBlob, err := NewDriveBlobFromCredentials(ctx, cfg.DriveFileID, credentialsJson)
		if err != nil {
			return nil, nil, err
		}
		return NewBlobSource(driveBlob), noop, nil
	case config.StorageGCS:
		gcsBlob, err := NewGCSBlob(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, nil, err
		}
		return NewBlobSource(gcsBlob), gcsBlob.Close, nil
	case config.StoragePostgres:
		if dbPool == nil {
			return nil, nil, errors.New("postgres storage without db pool")
		}
		pgSource := NewPostgresSource(dbPool)
		if err := pgSource.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return pgSource, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage [%s]", cfg.Storage)
	}
}
