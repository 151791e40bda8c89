package chart

import (
	"errors"
	"fmt"

	"github.com/2beens/weightcontrol/internal/telemetry/metrics"
	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const cacheExpireSeconds = 60 * 60

// Service renders charts of the current analysis state. Rendered PNGs are cached per dataset
// version, so a change to the dataset makes older entries unreachable.
type Service struct {
	analysis       *weight.Analysis
	renderer       *Renderer
	cache          *freecache.Cache
	metricsManager *metrics.Manager
}

type NewServiceParams struct {
	Analysis       *weight.Analysis
	Renderer       *Renderer
	CacheSizeMB    int
	MetricsManager *metrics.Manager
}

func NewService(params NewServiceParams) (*Service, error) {
	if params.Analysis == nil {
		return nil, errors.New("chart service: analysis not set")
	}
	renderer := params.Renderer
	if renderer == nil {
		var err error
		renderer, err = NewRenderer(DefaultWidth, DefaultHeight)
		if err != nil {
			return nil, err
		}
	}

	var cache *freecache.Cache
	if params.CacheSizeMB > 0 {
		cache = freecache.NewCache(params.CacheSizeMB * 1024 * 1024)
	}

	return &Service{
		analysis:       params.Analysis,
		renderer:       renderer,
		cache:          cache,
		metricsManager: params.MetricsManager,
	}, nil
}

func (s *Service) TrendPNG(unit weight.Unit) ([]byte, error) {
	key := fmt.Sprintf("trend:v%d:%s", s.analysis.Version(), unit)
	return s.cached(key, "trend", func() ([]byte, error) {
		return s.renderer.Trend(s.analysis.Derived(), unit)
	})
}

func (s *Service) ForecastPNG(weeks int, unit weight.Unit) ([]byte, error) {
	key := fmt.Sprintf("forecast:v%d:%d:%s", s.analysis.Version(), weeks, unit)
	return s.cached(key, "forecast", func() ([]byte, error) {
		forecast, err := s.analysis.Forecast(weeks)
		if err != nil {
			return nil, err
		}
		return s.renderer.Forecast(forecast, s.analysis.LastN(forecastHistory), unit)
	})
}

func (s *Service) cached(key, chart string, render func() ([]byte, error)) ([]byte, error) {
	if s.cache != nil {
		if png, err := s.cache.Get([]byte(key)); err == nil {
			log.Tracef("chart [%s] found in cache", key)
			if s.metricsManager != nil {
				s.metricsManager.CounterChartCacheHits.Inc()
			}
			return png, nil
		}
	}

	png, err := render()
	if err != nil {
		return nil, err
	}
	if s.metricsManager != nil {
		s.metricsManager.CounterChartRenders.WithLabelValues(chart).Inc()
	}

	if s.cache != nil {
		if err := s.cache.Set([]byte(key), png, cacheExpireSeconds); err != nil {
			log.Debugf("chart [%s] (%d bytes) not cached: %s", key, len(png), err)
		}
	}

	return png, nil
}
