package weight

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/2beens/weightcontrol/internal/telemetry/metrics"
	"github.com/2beens/weightcontrol/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultForecastWeeks = 2
	MaxForecastWeeks     = 10
	// MaxAsOfDaysAhead bounds how far past today missing dates are listed.
	MaxAsOfDaysAhead = 366
)

type AnalysisParams struct {
	Source         Source
	Params         Params
	Blend          Blend
	MetricsManager *metrics.Manager
	// Now is used as the default "as of" date; time.Now when nil.
	Now func() time.Time
}

// Analysis is one session over a dataset and the model parameters.
// Reads may run concurrently; an append holds the write lock for the whole read-modify-write.
type Analysis struct {
	source         Source
	params         Params
	blend          Blend
	metricsManager *metrics.Manager
	now            func() time.Time

	// writeMu serializes everything that reads the source and replaces or persists the dataset
	writeMu sync.Mutex
	mu      sync.RWMutex
	dataset *Dataset
	// version changes every time the dataset does
	version uint64
}

type Forecast struct {
	Weeks     int
	Start     time.Time
	Last      float64
	Scenarios Scenarios
	Expected  []TrajectoryPoint
	Bad       []TrajectoryPoint
	Good      []TrajectoryPoint
}

type Summary struct {
	Entries    int
	FirstDate  time.Time
	LastDate   time.Time
	Missing    int
	LastWeight Value
	WeightAvg7 Value
	Activity   Value
}

func NewAnalysis(ctx context.Context, params AnalysisParams) (*Analysis, error) {
	if params.Source == nil {
		return nil, errors.New("analysis: source not set")
	}
	if err := params.Params.Validate(); err != nil {
		return nil, err
	}
	if params.Blend == (Blend{}) {
		params.Blend = DefaultBlend
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	a := &Analysis{
		source:         params.Source,
		params:         params.Params,
		blend:          params.Blend,
		metricsManager: params.MetricsManager,
		now:            params.Now,
	}
	if err := a.Reload(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload replaces the in-memory dataset with the content of the source.
// On failure the previous dataset stays in place.
func (a *Analysis) Reload(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	begin := time.Now()
	dataset, err := Load(ctx, a.source)
	if err != nil {
		return err
	}
	if a.metricsManager != nil {
		a.metricsManager.HistogramDatasetLoad.Observe(time.Since(begin).Seconds())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dataset = dataset
	a.version++
	a.updateGauges()

	return nil
}

func (a *Analysis) AddEntry(ctx context.Context, entry Entry) (Result, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weight.analysis.add")
	defer span.End()

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := Append(ctx, a.dataset, a.source, entry)
	span.SetAttributes(attribute.String("result", res.String()))

	var writeErr *WriteError
	switch {
	case err == nil:
		a.version++
		a.updateGauges()
		if a.metricsManager != nil {
			a.metricsManager.CounterEntriesAdded.Inc()
		}
		entry.Date = Day(entry.Date)
		log.Infof("weight entry added: %s", entry)
	case errors.Is(err, ErrConflict):
		if a.metricsManager != nil {
			a.metricsManager.CounterEntryConflicts.Inc()
		}
	case errors.As(err, &writeErr):
		if a.metricsManager != nil {
			a.metricsManager.CounterEntryWriteFailures.Inc()
		}
		log.Errorf("add weight entry, rolled back: %s", err)
	}

	return res, err
}

func (a *Analysis) updateGauges() {
	if a.metricsManager == nil {
		return
	}
	a.metricsManager.GaugeDatasetEntries.Set(float64(a.dataset.Len()))
	if last, ok := a.dataset.Last(); ok {
		a.metricsManager.GaugeLastWeight.Set(last.Weight)
	}
}

func (a *Analysis) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

func (a *Analysis) SourceName() string {
	return a.source.String()
}

func (a *Analysis) Params() Params {
	return a.params
}

func (a *Analysis) Blend() Blend {
	return a.blend
}

func (a *Analysis) Today() time.Time {
	return Day(a.now())
}

func (a *Analysis) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset.Entries()
}

func (a *Analysis) LastN(n int) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset.LastN(n)
}

// LastWeight is the weight of the most recent entry, used as the default for a new entry.
func (a *Analysis) LastWeight() (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	last, ok := a.dataset.Last()
	return last.Weight, ok
}

func (a *Analysis) Derived() EnrichedDataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Derive(a.dataset, a.blend)
}

// Missing lists dates without an entry up to asOf; a zero asOf means today.
// asOf more than MaxAsOfDaysAhead days past today is rejected with ErrAsOfTooFar.
func (a *Analysis) Missing(asOf time.Time) ([]time.Time, error) {
	today := a.Today()
	if asOf.IsZero() {
		asOf = today
	}
	if limit := today.AddDate(0, 0, MaxAsOfDaysAhead); Day(asOf).After(limit) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrAsOfTooFar, Day(asOf).Format(DateLayout), limit.Format(DateLayout))
	}
	a.mu.RLock()
	seq := FindMissing(a.dataset, asOf)
	a.mu.RUnlock()
	return slices.Collect(seq), nil
}

// Forecast estimates the weekly change from the latest entries and projects it weeks ahead
// from the last entry, for the expected, bad and good scenarios.
func (a *Analysis) Forecast(weeks int) (_ Forecast, err error) {
	outcome := "ok"
	defer func() {
		if a.metricsManager != nil {
			a.metricsManager.CounterForecasts.WithLabelValues(outcome).Inc()
		}
	}()

	if weeks < 1 || weeks > MaxForecastWeeks {
		outcome = "invalid"
		return Forecast{}, fmt.Errorf("weeks must be in [1, %d], got %d", MaxForecastWeeks, weeks)
	}

	a.mu.RLock()
	tail := a.dataset.LastN(ForecastWindow)
	a.mu.RUnlock()

	scenarios, err := EstimateWeeklyChange(tail, a.params)
	if err != nil {
		outcome = "insufficient"
		return Forecast{}, err
	}

	last := tail[len(tail)-1]
	return Forecast{
		Weeks:     weeks,
		Start:     last.Date,
		Last:      last.Weight,
		Scenarios: scenarios,
		Expected:  Project(last.Date, last.Weight, scenarios.Expected, weeks),
		Bad:       Project(last.Date, last.Weight, scenarios.Bad, weeks),
		Good:      Project(last.Date, last.Weight, scenarios.Good, weeks),
	}, nil
}

func (a *Analysis) Summary() Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Summary{Entries: a.dataset.Len()}
	first, ok := a.dataset.First()
	if !ok {
		return s
	}
	last, _ := a.dataset.Last()
	s.FirstDate = first.Date
	s.LastDate = last.Date
	s.LastWeight = Some(last.Weight)

	for range FindMissing(a.dataset, a.now()) {
		s.Missing++
	}

	derived := Derive(a.dataset, a.blend)
	lastRow := derived.Rows[len(derived.Rows)-1]
	s.WeightAvg7 = lastRow.WeightAvg7
	s.Activity = lastRow.Activity

	return s
}
