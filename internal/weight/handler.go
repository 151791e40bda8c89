package weight

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/weightcontrol/internal/middleware"
	"github.com/2beens/weightcontrol/internal/telemetry/metrics"
	"github.com/2beens/weightcontrol/internal/telemetry/tracing"
	"github.com/2beens/weightcontrol/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	analysis *Analysis
}

func NewHandler(analysis *Analysis) *Handler {
	return &Handler{
		analysis: analysis,
	}
}

type SetupRoutesParams struct {
	RateLimiter             middleware.RequestRateLimiter
	AuthMiddleware          *middleware.AuthMiddlewareHandler
	AddEntryRateLimitPerMin int
	MetricsManager          *metrics.Manager
}

func (handler *Handler) SetupRoutes(weightRouter *mux.Router, params SetupRoutesParams) {
	weightRouter.HandleFunc("/entries", handler.HandleList).Methods("GET", "OPTIONS").Name("list-entries")
	weightRouter.HandleFunc("/derived", handler.HandleDerived).Methods("GET", "OPTIONS").Name("derived")
	weightRouter.HandleFunc("/missing", handler.HandleMissing).Methods("GET", "OPTIONS").Name("missing")
	weightRouter.HandleFunc("/forecast", handler.HandleForecast).Methods("GET", "OPTIONS").Name("forecast")
	weightRouter.HandleFunc("/summary", handler.HandleSummary).Methods("GET", "OPTIONS").Name("summary")

	writeRouter := weightRouter.Methods("POST").Subrouter()
	writeRouter.HandleFunc("/entries", handler.HandleAdd).Name("add-entry")
	writeRouter.HandleFunc("/reload", handler.HandleReload).Name("reload")
	if params.AuthMiddleware != nil {
		writeRouter.Use(params.AuthMiddleware.AuthCheck())
	}
	if params.RateLimiter != nil {
		writeRouter.Use(middleware.RateLimit(
			params.RateLimiter,
			"weight-write",
			params.AddEntryRateLimitPerMin,
			params.MetricsManager,
		))
	}
}

func handleOptions(w http.ResponseWriter, r *http.Request, allow string) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Add("Allow", allow)
	w.WriteHeader(http.StatusOK)
	return true
}

func unitFromRequest(w http.ResponseWriter, r *http.Request) (Unit, bool) {
	unit, err := ParseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		http.Error(w, "invalid unit (lbs or kgs)", http.StatusBadRequest)
		return "", false
	}
	return unit, true
}

func writeJSON(w http.ResponseWriter, v any, statusCode int) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal weight response: %s", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.list")
	defer span.End()

	if handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}

	unit, ok := unitFromRequest(w, r)
	if !ok {
		return
	}

	entries := handler.analysis.Entries()
	total := len(entries)
	if lastStr := r.URL.Query().Get("last"); lastStr != "" {
		last, err := strconv.Atoi(lastStr)
		if err != nil || last < 1 {
			http.Error(w, "invalid <last> param (has to be a positive number)", http.StatusBadRequest)
			return
		}
		entries = handler.analysis.LastN(last)
	}

	writeJSON(w, NewEntriesResponse(entries, total, unit), http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.add")
	defer span.End()

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	unit, ok := unitFromRequest(w, r)
	if !ok {
		return
	}

	var req EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Errorf("new weight entry, unmarshal json params: %s", err)
		http.Error(w, "add entry failed", http.StatusBadRequest)
		return
	}

	entry, err := req.Entry(unit, handler.analysis.Today())
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	res, err := handler.analysis.AddEntry(ctx, entry)
	var writeErr *WriteError
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidEntry):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrConflict):
		http.Error(w, "entry for date "+entry.Date.Format(DateLayout)+" already exists", http.StatusConflict)
		return
	case errors.As(err, &writeErr):
		http.Error(w, "failed to store entry, try again later", http.StatusServiceUnavailable)
		return
	default:
		log.Errorf("add weight entry %s: %s", entry, err)
		http.Error(w, "failed to add entry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, AddEntryResponse{
		Result: res.String(),
		Entry:  NewEntryDTO(entry, unit),
	}, http.StatusCreated)
}

func (handler *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.reload")
	defer span.End()

	if err := handler.analysis.Reload(ctx); err != nil {
		log.Errorf("reload weight dataset: %s", err)
		http.Error(w, "failed to reload dataset", http.StatusInternalServerError)
		return
	}

	writeJSON(w, NewSummaryResponse(
		handler.analysis.Summary(),
		handler.analysis.SourceName(),
		handler.analysis.Version(),
		UnitLbs,
	), http.StatusOK)
}

func (handler *Handler) HandleDerived(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.derived")
	defer span.End()

	if handleOptions(w, r, "GET, OPTIONS") {
		return
	}

	unit, ok := unitFromRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, NewDerivedResponse(handler.analysis.Derived(), unit), http.StatusOK)
}

func (handler *Handler) HandleMissing(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.missing")
	defer span.End()

	if handleOptions(w, r, "GET, OPTIONS") {
		return
	}

	asOf := handler.analysis.Today()
	if asOfStr := r.URL.Query().Get("asOf"); asOfStr != "" {
		parsed, err := time.Parse(DateLayout, asOfStr)
		if err != nil {
			http.Error(w, "invalid <asOf> param (expected YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	missing, err := handler.analysis.Missing(asOf)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid <asOf> param: at most %d days after today", MaxAsOfDaysAhead), http.StatusBadRequest)
		return
	}

	writeJSON(w, NewMissingResponse(asOf, missing), http.StatusOK)
}

// WeeksFromRequest reads the weeks query param, DefaultForecastWeeks when absent.
func WeeksFromRequest(r *http.Request) (int, error) {
	weeksStr := r.URL.Query().Get("weeks")
	if weeksStr == "" {
		return DefaultForecastWeeks, nil
	}
	weeks, err := strconv.Atoi(weeksStr)
	if err != nil {
		return 0, err
	}
	if weeks < 1 || weeks > MaxForecastWeeks {
		return 0, errors.New("weeks out of range")
	}
	return weeks, nil
}

func (handler *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.forecast")
	defer span.End()

	if handleOptions(w, r, "GET, OPTIONS") {
		return
	}

	unit, ok := unitFromRequest(w, r)
	if !ok {
		return
	}

	weeks, err := WeeksFromRequest(r)
	if err != nil {
		http.Error(w, "invalid <weeks> param (1-10)", http.StatusBadRequest)
		return
	}

	forecast, err := handler.analysis.Forecast(weeks)
	var insufficientErr *InsufficientDataError
	if errors.As(err, &insufficientErr) {
		http.Error(w, insufficientErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		log.Errorf("weight forecast: %s", err)
		http.Error(w, "forecast failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, NewForecastResponse(forecast, unit), http.StatusOK)
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.summary")
	defer span.End()

	if handleOptions(w, r, "GET, OPTIONS") {
		return
	}

	unit, ok := unitFromRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, NewSummaryResponse(
		handler.analysis.Summary(),
		handler.analysis.SourceName(),
		handler.analysis.Version(),
		unit,
	), http.StatusOK)
}
