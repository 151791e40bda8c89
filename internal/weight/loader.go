package weight

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/weightcontrol/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=loader_mocks_test.go -package=weight_test

// Source is the backing store of the dataset. SaveEntries always receives the full,
// sorted collection and overwrites whatever was stored before.
type Source interface {
	LoadEntries(ctx context.Context) ([]Entry, error)
	SaveEntries(ctx context.Context, entries []Entry) error
	String() string
}

type Result int

const (
	ResultNotApplied Result = iota
	ResultUpdated
	ResultConflict
)

func (r Result) String() string {
	switch r {
	case ResultUpdated:
		return "updated"
	case ResultConflict:
		return "conflict"
	default:
		return "not-applied"
	}
}

func Load(ctx context.Context, source Source) (_ *Dataset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weight.loader.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("source", source.String()))

	entries, err := source.LoadEntries(ctx)
	if err != nil {
		return nil, &LoadError{Source: source.String(), Err: err}
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, &LoadError{Source: source.String(), Err: fmt.Errorf("entry %s: %w", e.Date.Format(DateLayout), err)}
		}
	}

	dataset, err := NewDataset(entries)
	if err != nil {
		return nil, &LoadError{Source: source.String(), Err: err}
	}

	span.SetAttributes(attribute.Int("entries", dataset.Len()))
	log.Debugf("loaded %d weight entries from %s", dataset.Len(), source)

	return dataset, nil
}

// Append inserts entry into dataset and persists the full collection.
// An entry for an existing date is rejected with ErrConflict and nothing is written.
// When the write fails, the dataset is restored and a *WriteError is returned.
func Append(ctx context.Context, dataset *Dataset, source Source, entry Entry) (_ Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weight.loader.append")
	defer func() {
		if errors.Is(err, ErrConflict) {
			span.End()
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := entry.Validate(); err != nil {
		return ResultNotApplied, err
	}
	entry.Date = Day(entry.Date)
	span.SetAttributes(attribute.String("date", entry.Date.Format(DateLayout)))

	undo, err := dataset.insert(entry)
	if errors.Is(err, ErrConflict) {
		return ResultConflict, fmt.Errorf("%s: %w", entry.Date.Format(DateLayout), ErrConflict)
	}
	if err != nil {
		return ResultNotApplied, err
	}

	if err := source.SaveEntries(ctx, dataset.Entries()); err != nil {
		undo()
		return ResultNotApplied, &WriteError{Source: source.String(), Err: err}
	}

	return ResultUpdated, nil
}
