// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/taskstore"
)

// gatewayEnv is the resolved set of GATEWAY_* environment variables
// spec.md §6's environment table names, each with the default listed
// there when unset.
type gatewayEnv struct {
	listenAddr    string
	configFile    string
	logLevel      string
	logPretty     bool
	envTag        string
	publicBaseURL string

	taskStoreKind   string
	taskStoreURL    string
	taskStoreTTL    time.Duration
	taskStorePrefix string
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadEnv() gatewayEnv {
	ttl, err := time.ParseDuration(getenv("GATEWAY_TASK_STORE_TTL", "24h"))
	if err != nil {
		ttl = 24 * time.Hour
	}
	return gatewayEnv{
		listenAddr:      getenv("GATEWAY_LISTEN_ADDR", ":8080"),
		configFile:      getenv("GATEWAY_CONFIG_FILE", "./config.json"),
		logLevel:        getenv("GATEWAY_LOG_LEVEL", "info"),
		logPretty:       strings.EqualFold(getenv("GATEWAY_LOG_PRETTY", "false"), "true"),
		envTag:          getenv("GATEWAY_ENV", "development"),
		publicBaseURL:   getenv("GATEWAY_PUBLIC_BASE_URL", "http://localhost:8080"),
		taskStoreKind:   getenv("GATEWAY_TASK_STORE", "memory"),
		taskStoreURL:    getenv("GATEWAY_TASK_STORE_URL", ""),
		taskStoreTTL:    ttl,
		taskStorePrefix: getenv("GATEWAY_TASK_STORE_PREFIX", "cognigy-a2a:"),
	}
}

// newLogger builds the process-wide structured logger, matching the
// teacher pack's observability.NewLogger split between a JSON handler
// (default, production) and a text handler (GATEWAY_LOG_PRETTY=true,
// local development).
func newLogger(env gatewayEnv) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(env.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var output io.Writer = os.Stdout
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if env.logPretty {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}
	return slog.New(handler).With(slog.String("env", env.envTag))
}

// newTaskStore builds the configured Task Store. Only "memory" has a
// concrete implementation in this repository (see DESIGN.md's Redis open
// question); "redis" is accepted syntactically so the environment
// contract validates, but selecting it is a fatal configuration error
// until a Redis-backed Store ships.
func newTaskStore(env gatewayEnv) (taskstore.Store, error) {
	switch strings.ToLower(env.taskStoreKind) {
	case "memory", "":
		return taskstore.NewInMemoryStore(), nil
	case "redis":
		return nil, fmt.Errorf("task store kind %q is recognized but not implemented in this build (no Redis client wired); use memory", env.taskStoreKind)
	default:
		return nil, fmt.Errorf("unknown task store kind %q (want memory or redis)", env.taskStoreKind)
	}
}
