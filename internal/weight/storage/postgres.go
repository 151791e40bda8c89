package storage

import (
	"context"
	"fmt"

	"github.com/2beens/weightcontrol/internal/telemetry/tracing"
	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

const entriesTable = "weight_entry"

const createEntriesTableSQL = `
CREATE TABLE IF NOT EXISTS weight_entry (
	date      DATE PRIMARY KEY,
	weight    DOUBLE PRECISION NOT NULL,
	food      INTEGER NOT NULL,
	exercised BOOLEAN NOT NULL
)`

// PostgresSource keeps the dataset in the weight_entry table.
type PostgresSource struct {
	db *pgxpool.Pool
}

var _ weight.Source = (*PostgresSource)(nil)

func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{
		db: db,
	}
}

func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createEntriesTableSQL); err != nil {
		return fmt.Errorf("create %s table: %w", entriesTable, err)
	}
	return nil
}

func (s *PostgresSource) LoadEntries(ctx context.Context) (_ []weight.Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.postgres.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := s.db.Query(ctx, `
		SELECT date, weight, food, exercised
		FROM weight_entry
		ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []weight.Entry
	for rows.Next() {
		var e weight.Entry
		if err := rows.Scan(&e.Date, &e.Weight, &e.Food, &e.Exercised); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// SaveEntries replaces the table content in a single transaction.
func (s *PostgresSource) SaveEntries(ctx context.Context, entries []weight.Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.postgres.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		// no-op after commit
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM weight_entry`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{entriesTable},
		[]string{"date", "weight", "food", "exercised"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{weight.Day(e.Date), e.Weight, e.Food, e.Exercised}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy entries: %w", err)
	}
	if copied != int64(len(entries)) {
		return fmt.Errorf("copy entries: copied %d of %d", copied, len(entries))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresSource) String() string {
	return "postgres:" + entriesTable
}
