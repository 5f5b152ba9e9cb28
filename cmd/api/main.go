package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"image-quality-api/httpapi"
	"image-quality-api/internal/logging"
	"image-quality-api/middleware/admission/application"
	"image-quality-api/middleware/admission/domain"
	"image-quality-api/middleware/admission/infra"
	"image-quality-api/scoring"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger, logCloser := logging.Setup(logging.Options{
		Name:        "image_quality_api",
		Dir:         cfg.logDir,
		FileMaxMB:   cfg.logFileMaxMB,
		FileBackups: cfg.logFileBackups,
	})
	defer func() { _ = logCloser.Close() }()

	pool := infra.NewPool(cfg.maxWorkers)
	gate := infra.NewChanGate(cfg.maxConcurrent)
	queue := infra.NewQueue(cfg.maxQueueSize)

	sched := &application.Scheduler{
		Queue:       queue,
		Gate:        gate,
		Executor:    pool,
		WaitTimeout: cfg.requestTimeout,
	}
	drainer := application.NewDrainer()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	infra.RegisterLoadMetrics(reg, sched.CurrentLoad, drainer.Active)

	stats := domain.StatsStore(infra.NewPromStats(reg))
	if cfg.statsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			logger.Error("redis stats ping error", "err", err)
			os.Exit(1)
		}

		stats = infra.MultiStats(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackRoutes(cfg.statsTrackRoutes),
		))
	}

	api := &httpapi.Server{
		Scheduler:  sched,
		Drainer:    drainer,
		Engine:     scoring.NewEngine(),
		Stats:      stats,
		Logger:     logger,
		MaxWorkers: cfg.maxWorkers,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		logger.Info("received shutdown signal, starting graceful shutdown",
			"active_requests", drainer.Active())
		drainer.BeginDrain()

		graceCtx, cancelGrace := context.WithTimeout(context.Background(), cfg.shutdownGrace)
		defer cancelGrace()
		if !drainer.AwaitDrainComplete(graceCtx) {
			logger.Warn("shutdown grace period reached with requests still active",
				"active_requests", drainer.Active())
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting image quality assessment api",
		"addr", cfg.listenAddr,
		"max_workers", cfg.maxWorkers,
		"max_concurrent_requests", cfg.maxConcurrent,
		"max_queue_size", cfg.maxQueueSize,
		"request_timeout", cfg.requestTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}

	<-shutdownDone

	// o pool fecha por último: primeiro drena, depois para de aceitar
	// trabalho; tarefas em andamento terminam, nunca são interrompidas
	pool.Close()
	logger.Info("shutdown complete")
}

type config struct {
	listenAddr     string
	maxWorkers     int
	maxConcurrent  int
	maxQueueSize   int
	requestTimeout time.Duration
	shutdownGrace  time.Duration

	logDir         string
	logFileMaxMB   int
	logFileBackups int

	statsEnabled       bool
	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackRoutes   bool
}

func readConfig() (config, error) {
	cpu := runtime.NumCPU()
	if cpu < 1 {
		cpu = 1
	}

	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8000")

	// defaults derivados do número de cores: workers = cpu*2,
	// concorrência = cpu*3. O invariante documentado é
	// MAX_CONCURRENT_REQUESTS <= MAX_WORKERS quando configurado na mão.
	cfg.maxWorkers = clampMin(getenvIntDefault("MAX_WORKERS", cpu*2), 1)
	cfg.maxConcurrent = clampMin(getenvIntDefault("MAX_CONCURRENT_REQUESTS", cpu*3), 1)
	cfg.maxQueueSize = clampMin(getenvIntDefault("MAX_QUEUE_SIZE", 500), 1)
	cfg.requestTimeout = time.Duration(clampMin(getenvIntDefault("REQUEST_TIMEOUT", 30), 1)) * time.Second
	cfg.shutdownGrace = time.Duration(clampMin(getenvIntDefault("SHUTDOWN_GRACE", 30), 1)) * time.Second

	cfg.logDir = getenvDefault("LOG_DIR", "logs")
	cfg.logFileMaxMB = getenvIntDefault("LOG_FILE_MAX_MB", 10)
	cfg.logFileBackups = getenvIntDefault("LOG_FILE_BACKUPS", 5)

	cfg.statsEnabled = getenvBoolDefault("ADMISSION_STATS_ENABLED", false)
	cfg.statsRedisAddr = getenvDefault("ADMISSION_STATS_REDIS_ADDR", "")
	cfg.statsRedisPassword = os.Getenv("ADMISSION_STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("ADMISSION_STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("ADMISSION_STATS_PREFIX", "admission:stats")
	cfg.statsTTL = getenvDurationDefault("ADMISSION_STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("ADMISSION_STATS_BUCKET", "minute")
	cfg.statsTrackRoutes = getenvBoolDefault("ADMISSION_STATS_TRACK_ROUTES", false)

	if cfg.statsEnabled && strings.TrimSpace(cfg.statsRedisAddr) == "" {
		return config{}, errors.New("ADMISSION_STATS_REDIS_ADDR is required when ADMISSION_STATS_ENABLED=true")
	}

	return cfg, nil
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
