package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/weightcontrol/internal/weight"
)

// weightService provides the weight data the tools expose. Used by Handler for testability.
type weightService interface {
	Summary(unit weight.Unit) weight.SummaryResponse
	Entries(last int, unit weight.Unit) weight.EntriesResponse
	Missing(asOf time.Time) (weight.MissingResponse, error)
	Forecast(weeks int, unit weight.Unit) (weight.ForecastResponse, error)
	AddEntry(ctx context.Context, entry weight.EntryDTO, unit weight.Unit) (weight.AddEntryResponse, error)
}

// AnalysisService implements weightService on top of a weight analysis session.
type AnalysisService struct {
	analysis *weight.Analysis
}

func NewAnalysisService(analysis *weight.Analysis) *AnalysisService {
	return &AnalysisService{
		analysis: analysis,
	}
}

func (s *AnalysisService) Summary(unit weight.Unit) weight.SummaryResponse {
	return weight.NewSummaryResponse(s.analysis.Summary(), s.analysis.SourceName(), s.analysis.Version(), unit)
}

// Entries returns the last n entries, or all of them when last <= 0.
func (s *AnalysisService) Entries(last int, unit weight.Unit) weight.EntriesResponse {
	all := s.analysis.Entries()
	entries := all
	if last > 0 && last < len(all) {
		entries = all[len(all)-last:]
	}
	return weight.NewEntriesResponse(entries, len(all), unit)
}

// Missing lists dates without an entry up to asOf; zero asOf means today.
func (s *AnalysisService) Missing(asOf time.Time) (weight.MissingResponse, error) {
	if asOf.IsZero() {
		asOf = s.analysis.Today()
	}
	missing, err := s.analysis.Missing(asOf)
	if err != nil {
		return weight.MissingResponse{}, err
	}
	return weight.NewMissingResponse(asOf, missing), nil
}

func (s *AnalysisService) Forecast(weeks int, unit weight.Unit) (weight.ForecastResponse, error) {
	if weeks == 0 {
		weeks = weight.DefaultForecastWeeks
	}
	forecast, err := s.analysis.Forecast(weeks)
	if err != nil {
		return weight.ForecastResponse{}, err
	}
	return weight.NewForecastResponse(forecast, unit), nil
}

func (s *AnalysisService) AddEntry(ctx context.Context, dto weight.EntryDTO, unit weight.Unit) (weight.AddEntryResponse, error) {
	if dto.Weight == 0 {
		lastWeight, ok := s.analysis.LastWeight()
		if !ok {
			return weight.AddEntryResponse{}, errors.New("weight is required for the first entry")
		}
		dto.Weight = unit.FromLbs(lastWeight)
	}

	entry, err := dto.Entry(unit, s.analysis.Today())
	if err != nil {
		return weight.AddEntryResponse{}, err
	}

	res, err := s.analysis.AddEntry(ctx, entry)
	if err != nil {
		return weight.AddEntryResponse{Result: res.String()}, err
	}
	return weight.AddEntryResponse{
		Result: res.String(),
		Entry:  weight.NewEntryDTO(entry, unit),
	}, nil
}
