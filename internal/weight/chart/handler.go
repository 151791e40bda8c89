package chart

import (
	"errors"
	"net/http"

	"github.com/2beens/weightcontrol/internal/telemetry/tracing"
	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(chartRouter *mux.Router) {
	chartRouter.HandleFunc("/trend.png", handler.HandleTrend).Methods("GET", "OPTIONS").Name("chart-trend")
	chartRouter.HandleFunc("/forecast.png", handler.HandleForecast).Methods("GET", "OPTIONS").Name("chart-forecast")
}

func (handler *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.chart.trend")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	unit, err := weight.ParseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		http.Error(w, "invalid unit (lbs or kgs)", http.StatusBadRequest)
		return
	}

	png, err := handler.service.TrendPNG(unit)
	if errors.Is(err, errNoData) {
		http.Error(w, "no entries yet", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("render trend chart: %s", err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.PNG, png)
}

func (handler *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.chart.forecast")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	unit, err := weight.ParseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		http.Error(w, "invalid unit (lbs or kgs)", http.StatusBadRequest)
		return
	}
	weeks, err := weight.WeeksFromRequest(r)
	if err != nil {
		http.Error(w, "invalid <weeks> param (1-10)", http.StatusBadRequest)
		return
	}

	png, err := handler.service.ForecastPNG(weeks, unit)
	var insufficientErr *weight.InsufficientDataError
	if errors.As(err, &insufficientErr) {
		http.Error(w, insufficientErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		log.Errorf("render forecast chart: %s", err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.PNG, png)
}
