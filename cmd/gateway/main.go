// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command gateway runs the Cognigy-to-A2A protocol translation gateway:
// it loads the agents configuration, builds the Agent Registry, Task
// Store, Connection Pool and Agent Executor, and serves the HTTP/JSON-RPC
// surface until SIGINT or SIGTERM. Grounded on the teacher's
// server/example/main.go (agent card construction, http.Server,
// signal.Notify shutdown), generalized from one hardcoded agent card to a
// multi-agent config document and from log.Fatalf to structured
// log/slog output.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/agents"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/cognigystream"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/config"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/connpool"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/executor"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/httpapi"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/tasksession"
)

func main() {
	env := loadEnv()
	logger := newLogger(env)
	slog.SetDefault(logger)

	descriptors, err := config.Load(env.configFile)
	if err != nil {
		logger.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}
	if len(descriptors) == 0 {
		logger.Error("configuration error", slog.String("detail", "no agents loaded"))
		os.Exit(1)
	}

	store, err := newTaskStore(env)
	if err != nil {
		logger.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}

	registry, err := agents.New(descriptors, func(id string) string {
		return fmt.Sprintf("%s/agents/%s/", strings.TrimSuffix(env.publicBaseURL, "/"), id)
	})
	if err != nil {
		logger.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("agents loaded", slog.Int("count", registry.Len()))

	pool := connpool.New(streamDialer(registry))
	pool.OnDead(func(agentID string) {
		logger.Warn("connection pool entry went dead", slog.String("agentId", agentID))
	})

	ex := executor.New(tasksession.New())

	senderFor := func(d agents.Descriptor) (adapter.Sender, error) {
		switch d.Transport {
		case adapter.KindReq:
			return adapter.NewReq(d.EndpointBaseURL, d.EndpointToken), nil
		case adapter.KindStream:
			if _, err := pool.GetOrCreate(d.ID); err != nil {
				return nil, fmt.Errorf("connection pool: %w", err)
			}
			pool.SessionStarted(d.ID)
			return &pooledStream{
				Stream:  adapter.NewStream(d.EndpointBaseURL, d.EndpointToken, cognigystream.NewSessionFactory()),
				pool:    pool,
				agentID: d.ID,
			}, nil
		default:
			return nil, fmt.Errorf("unsupported transport %q", d.Transport)
		}
	}

	server := httpapi.New(registry, ex, store, senderFor)

	httpServer := &http.Server{
		Addr:    env.listenAddr,
		Handler: server.Handler(),
	}

	shutdownComplete := make(chan struct{})
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
		close(shutdownComplete)
	}()

	logger.Info("gateway listening", slog.String("addr", env.listenAddr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to bind", slog.Any("error", err))
		os.Exit(1)
	}
	<-shutdownComplete
}

// pooledStream wraps adapter.NewStream's per-invocation session with
// Connection Pool session-count bookkeeping: the pool entry tracks agent
// liveness and active-session counts but never carries invocation
// traffic itself (spec.md §4.4). senderFor calls SessionStarted when it
// hands out a pooledStream; Send calls SessionEnded when the invocation's
// own fresh session finishes and reports a transport failure back to the
// pool for its reconnect policy.
type pooledStream struct {
	*adapter.Stream
	pool    *connpool.Pool
	agentID string
}

func (p *pooledStream) Send(sc adapter.SendContext, cb adapter.Callback) ([]normalizer.RawOutput, error) {
	defer p.pool.SessionEnded(p.agentID)
	outputs, err := p.Stream.Send(sc, cb)
	if err != nil {
		if adapterErr, ok := adapter.AsError(err); ok {
			switch adapterErr.Kind {
			case adapter.ErrDisconnect, adapter.ErrSocket, adapter.ErrConnectFailed:
				p.pool.NotifyDisconnect(p.agentID, err)
			}
		}
	}
	return outputs, err
}

// streamDialer builds the connpool.Dialer used to health-check STREAM
// agents: one extra WebSocket connection per agent, held open by the pool
// purely for liveness, separate from the fresh per-invocation sessions
// the Stream Adapter dials.
func streamDialer(registry *agents.Registry) connpool.Dialer {
	return func(agentID string) connpool.Client {
		d, _ := registry.Get(agentID)
		url := strings.TrimSuffix(d.EndpointBaseURL, "/") + "/" + d.EndpointToken
		return &poolLivenessClient{session: cognigystream.New(url)}
	}
}

// poolLivenessClient adapts cognigystream.Session's context-aware Connect
// to connpool.Client's synchronous Connect() error.
type poolLivenessClient struct {
	session *cognigystream.Session
}

func (c *poolLivenessClient) Connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	return c.session.Connect(ctx)
}

func (c *poolLivenessClient) Close() error { return c.session.Close() }
