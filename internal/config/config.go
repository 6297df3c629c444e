package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const maxWorkers = 256

// Config holds all process settings, populated from environment variables.
// Run-specific physics and file locations live in the YAML run file named by RunFile.
type Config struct {
	RunFile         string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	Workers                int
	TriangulationCacheSize int
	SeriesCache            string

	// Step event publishing.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaBatchSize    int
	KafkaBatchTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := parseIntEnv("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("invalid WORKERS: must be 1-%d", maxWorkers)
	}

	cacheSize, err := parseIntEnv("TRIANGULATION_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}
	// A bracket query holds two triangulations at once.
	if cacheSize < 2 {
		return nil, errors.New("invalid TRIANGULATION_CACHE_SIZE: must be at least 2")
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid KAFKA_ENABLED: must be true or false")
		}
	}

	cfg := &Config{
		RunFile:         sharedcfg.EnvOrDefault("RUN_FILE", "forcing.yaml"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         os.Getenv("LOG_FILE"),
		ShutdownTimeout: shutdownTimeout,

		Workers:                workers,
		TriangulationCacheSize: cacheSize,
		SeriesCache:            os.Getenv("SERIES_CACHE"),

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "wind-forcing-steps"),
		KafkaBatchSize:    batchSize,
		KafkaBatchTimeout: flushInterval,
	}
	if _, set := os.LookupEnv("HTTP_ADDR"); !set {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, s)
	}
	return n, nil
}
