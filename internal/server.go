package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/weightcontrol/internal/config"
	"github.com/2beens/weightcontrol/internal/db"
	"github.com/2beens/weightcontrol/internal/middleware"
	"github.com/2beens/weightcontrol/internal/telemetry/metrics"
	"github.com/2beens/weightcontrol/internal/telemetry/tracing"
	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/internal/weight/chart"
	weightmcp "github.com/2beens/weightcontrol/internal/weight/mcp"
	"github.com/2beens/weightcontrol/internal/weight/storage"
	"github.com/2beens/weightcontrol/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string
	apiTokenHash      string // bcrypt hash of the token required for writes

	config       *config.Config
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	closeSource  func() error
	analysis     *weight.Analysis
	chartService *chart.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	APITokenHash            string
	RedisPassword           string
	DBUser                  string
	DBPassword              string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	var collectors []prometheus.Collector
	var dbPool *pgxpool.Pool
	if cfg.Storage == config.StoragePostgres {
		var err error
		dbPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         params.DBUser,
			DBPassword:     params.DBPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}

		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		collectors = append(collectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}

	promRegistry := metrics.SetupPrometheus(collectors...)
	metricsManager := metrics.NewManager("backend", "weight", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	var rdb *redis.Client
	if cfg.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	} else {
		log.Warnln("redis not configured, write endpoints will not be rate limited")
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "weight-backend", rdb)
	if err != nil {
		return nil, err
	}

	source, closeSource, err := storage.NewSource(ctx, cfg, dbPool)
	if err != nil {
		return nil, fmt.Errorf("setup entries source: %w", err)
	}

	modelParams, err := weight.LoadParams(cfg.ParamsPath)
	if err != nil {
		return nil, err
	}

	blend, err := weight.NewBlend(cfg.BlendFoodWeight)
	if err != nil {
		return nil, err
	}

	analysis, err := weight.NewAnalysis(ctx, weight.AnalysisParams{
		Source:         source,
		Params:         modelParams,
		Blend:          blend,
		MetricsManager: metricsManager,
	})
	if err != nil {
		return nil, fmt.Errorf("new analysis: %w", err)
	}
	log.Infof("loaded %d weight entries from %s", len(analysis.Entries()), source)

	renderer, err := chart.NewRenderer(chart.DefaultWidth, chart.DefaultHeight)
	if err != nil {
		return nil, fmt.Errorf("new chart renderer: %w", err)
	}
	chartService, err := chart.NewService(chart.NewServiceParams{
		Analysis:       analysis,
		Renderer:       renderer,
		CacheSizeMB:    cfg.ChartCacheMB,
		MetricsManager: metricsManager,
	})
	if err != nil {
		return nil, fmt.Errorf("new chart service: %w", err)
	}

	return &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		apiTokenHash: params.APITokenHash,
		dbPool:       dbPool,
		redisClient:  rdb,
		closeSource:  closeSource,
		analysis:     analysis,
		chartService: chartService,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("weight-router"))

	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	var rateLimiter middleware.RequestRateLimiter
	if s.redisClient != nil {
		rateLimiter = redis_rate.NewLimiter(s.redisClient)
	}

	weightRouter := r.PathPrefix("/weight").Subrouter()

	// chart routes go first so /weight/chart/* is not shadowed by the api routes
	chartHandler := chart.NewHandler(s.chartService)
	chartHandler.SetupRoutes(weightRouter.PathPrefix("/chart").Subrouter())

	weightRouter.HandleFunc("/export.csv", s.handleExport).Methods("GET", "OPTIONS").Name("export")

	weightHandler := weight.NewHandler(s.analysis)
	weightHandler.SetupRoutes(weightRouter, weight.SetupRoutesParams{
		RateLimiter:             rateLimiter,
		AuthMiddleware:          middleware.NewAuthMiddlewareHandler(s.apiTokenHash),
		AddEntryRateLimitPerMin: s.config.AddEntryRateLimitPerMin,
		MetricsManager:          s.metricsManager,
	})

	// read-only tools; entries are added through the authenticated api
	mcpServer := weightmcp.NewServer(weightmcp.NewServerParams{
		Analysis: s.analysis,
		Version:  s.versionInfo,
	})
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)
	r.PathPrefix("/mcp").Handler(mcpHandler).Name("mcp")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.Cors(middleware.CorsParams{}))
	r.Use(middleware.DrainAndCloseRequest(middleware.MaxRequestBodyBytes))

	return r, nil
}

// handleExport serves the whole dataset in the CSV layout the file backends store.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var buf bytes.Buffer
	if err := storage.EncodeEntries(&buf, s.analysis.Entries()); err != nil {
		log.Errorf("export entries: %s", err)
		http.Error(w, "failed to export entries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="weight.csv"`)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.CSV, buf.Bytes())
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, so no entry is written while the backends close
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.closeSource != nil {
		if err := s.closeSource(); err != nil {
			log.Errorf("failed to close entries source: %s", err)
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
