package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/weightcontrol/internal/config"
	"github.com/2beens/weightcontrol/internal/db"
	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/internal/weight/storage"
)

type OpenAnalysisParams struct {
	Config     *config.Config
	DBUser     string
	DBPassword string
}

// OpenAnalysis loads a session without the http server around it (CLI, stdio MCP).
// The returned func closes the source and the db pool, if any.
func OpenAnalysis(ctx context.Context, params OpenAnalysisParams) (*weight.Analysis, func(), error) {
	cfg := params.Config

	var dbPool *pgxpool.Pool
	if cfg.Storage == config.StoragePostgres {
		var err error
		dbPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:     cfg.PostgresHost,
			DBPort:     cfg.PostgresPort,
			DBName:     cfg.PostgresDBName,
			DBUser:     params.DBUser,
			DBPassword: params.DBPassword,
			MaxConns:   2,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("new db pool: %w", err)
		}
	}

	closeAll := func(closeSource func() error) {
		if closeSource != nil {
			if err := closeSource(); err != nil {
				log.Errorf("close entries source: %s", err)
			}
		}
		if dbPool != nil {
			dbPool.Close()
		}
	}

	source, closeSource, err := storage.NewSource(ctx, cfg, dbPool)
	if err != nil {
		closeAll(nil)
		return nil, nil, fmt.Errorf("setup entries source: %w", err)
	}

	modelParams, err := weight.LoadParams(cfg.ParamsPath)
	if err != nil {
		closeAll(closeSource)
		return nil, nil, err
	}

	blend, err := weight.NewBlend(cfg.BlendFoodWeight)
	if err != nil {
		closeAll(closeSource)
		return nil, nil, err
	}

	analysis, err := weight.NewAnalysis(ctx, weight.AnalysisParams{
		Source: source,
		Params: modelParams,
		Blend:  blend,
	})
	if err != nil {
		closeAll(closeSource)
		return nil, nil, fmt.Errorf("new analysis: %w", err)
	}

	return analysis, func() { closeAll(closeSource) }, nil
}
