package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir         string
	DefaultStation  string
	PollutantColumn string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Evaluation defaults.
	SplitSeed     uint64
	TestFraction  float64
	RiskThreshold float64

	CacheMaxSources int
	WarmOnStart     bool

	// Report sink. Publishing is off when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaReportTopic string
}

// PublishEnabled reports whether dashboard reports go to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	seed, err := strconv.ParseUint(envOrDefault("SPLIT_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SPLIT_SEED")
	}

	testFraction, err := strconv.ParseFloat(envOrDefault("TEST_FRACTION", "0.25"), 64)
	if err != nil || testFraction <= 0 || testFraction >= 1 {
		return nil, errors.New("invalid TEST_FRACTION: must be between 0 and 1")
	}

	threshold, err := strconv.ParseFloat(envOrDefault("RISK_THRESHOLD", "75"), 64)
	if err != nil || threshold <= 0 {
		return nil, errors.New("invalid RISK_THRESHOLD: must be a positive number")
	}

	cacheMax, err := strconv.Atoi(envOrDefault("CACHE_MAX_SOURCES", "16"))
	if err != nil || cacheMax <= 0 {
		return nil, errors.New("invalid CACHE_MAX_SOURCES: must be a positive integer")
	}

	warm, err := strconv.ParseBool(envOrDefault("WARM_ON_START", "true"))
	if err != nil {
		return nil, errors.New("invalid WARM_ON_START")
	}

	cfg := &Config{
		DataDir:          envOrDefault("DATA_DIR", "./data"),
		DefaultStation:   envOrDefault("DEFAULT_STATION", "Shunyi"),
		PollutantColumn:  envOrDefault("POLLUTANT_COLUMN", "PM2.5"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		SplitSeed:        seed,
		TestFraction:     testFraction,
		RiskThreshold:    threshold,
		CacheMaxSources:  cacheMax,
		WarmOnStart:      warm,
		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "air-quality-reports"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.PollutantColumn == "" {
		return nil, errors.New("POLLUTANT_COLUMN is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
