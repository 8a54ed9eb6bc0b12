// Package config loads service configuration from the environment. A .env
// file in the working directory is read first when present; variables already
// set in the process environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr       string
	PostgresURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RequestTTL     time.Duration
	BookingTimeout time.Duration
	LogLevel       logrus.Level
	EventsEnabled  bool
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env file: %w", err)
	}

	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
	if cfg.PostgresURL == "" {
		return Config{}, errors.New("missing required env var: POSTGRES_URL")
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getenv("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("parsing REDIS_DB: %w", err)
	}
	if cfg.RequestTTL, err = time.ParseDuration(getenv("REQUEST_CACHE_TTL", "1h")); err != nil {
		return Config{}, fmt.Errorf("parsing REQUEST_CACHE_TTL: %w", err)
	}
	if cfg.BookingTimeout, err = time.ParseDuration(getenv("BOOKING_TIMEOUT", "30s")); err != nil {
		return Config{}, fmt.Errorf("parsing BOOKING_TIMEOUT: %w", err)
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getenv("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}
	if cfg.EventsEnabled, err = strconv.ParseBool(getenv("EVENTS_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parsing EVENTS_ENABLED: %w", err)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
