// Command forcing computes wind stress and pressure on the nodes of an ocean
// model mesh from an HWIND or OWI archive, writing one file per forcing step.
//
// Process settings come from the environment (optionally a .env file); the run
// itself is described by the YAML file named by RUN_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-wind-forcing/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-wind-forcing/internal/adapter/kafka"
	"github.com/couchcryptid/storm-wind-forcing/internal/adapter/seriescache"
	"github.com/couchcryptid/storm-wind-forcing/internal/adapter/stepfile"
	"github.com/couchcryptid/storm-wind-forcing/internal/config"
	"github.com/couchcryptid/storm-wind-forcing/internal/engine"
	"github.com/couchcryptid/storm-wind-forcing/internal/interp"
	"github.com/couchcryptid/storm-wind-forcing/internal/mesh"
	"github.com/couchcryptid/storm-wind-forcing/internal/observability"
	"github.com/couchcryptid/storm-wind-forcing/internal/pipeline"
	"github.com/couchcryptid/storm-wind-forcing/internal/runfile"
	"github.com/couchcryptid/storm-wind-forcing/internal/series"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	rf, err := runfile.Load(cfg.RunFile)
	if err != nil {
		return err
	}
	logger.Info("run file loaded",
		"file", cfg.RunFile,
		"meteo", rf.Meteo.String(),
		"mesh", rf.MeshFile,
		"end_time", rf.EndTime,
		"frequency", rf.Frequency,
		"dt", rf.DT,
	)

	m, err := mesh.Load(rf.MeshFile, rf.MeshFormat)
	if err != nil {
		return err
	}
	logger.Info("mesh loaded", "name", m.Name, "nodes", len(m.Nodes), "elements", len(m.Elements))

	s, err := loadSeries(cfg, rf, logger)
	if err != nil {
		return err
	}
	metrics.SnapshotsLoaded.Set(float64(s.Len()))

	cache, err := interp.NewCache(cfg.TriangulationCacheSize, metrics)
	if err != nil {
		return err
	}
	eng, err := engine.New(s, engine.Config{AirDensity: rf.AirDensity, Relationship: rf.Relationship}, cache, logger, metrics)
	if err != nil {
		return err
	}

	var publisher pipeline.Publisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("step events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	runID := uuid.NewString()
	p := pipeline.New(eng, stepfile.NewWriter(logger), publisher, logger, metrics, cfg.Workers, runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			logger.Info("shutdown complete")
		}()
	}

	start := rf.StartTime
	if start.IsZero() {
		start = s.First()
	}
	sched := pipeline.Schedule{
		Start:     start,
		End:       rf.EndTime,
		Frequency: rf.Frequency,
		DT:        rf.DT,
		Prefix:    rf.OutputPrefix,
	}
	if err := p.Run(ctx, sched, m.Targets()); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}

func loadSeries(cfg *config.Config, rf *runfile.Run, logger *slog.Logger) (*series.Series, error) {
	if cfg.SeriesCache == "" {
		return series.Load(rf.Source(), logger)
	}
	return seriescache.New(cfg.SeriesCache, logger).Load(rf.Source())
}
