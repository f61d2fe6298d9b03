// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi is the ambient HTTP/JSON-RPC transport spec.md §1 names
// as an external collaborator: well-known discovery, the health probe,
// and the JSON-RPC entry point that decodes message/send, message/stream,
// tasks/get and tasks/cancel and drives the Agent Executor. Grounded on
// the teacher's A2AServer.processRequest (root server.go) — method
// dispatch by string switch, bytedance/sonic encode/decode, an
// OpenTelemetry span per request — generalized from a single-agent mux to
// a multi-agent, per-:id-routed mux, and from TaskManager to the Agent
// Executor + Task Store pairing this gateway actually has.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/agents"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/executor"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/jsonrpc2"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/taskstore"
)

// SenderFor resolves the adapter.Sender for a given agent descriptor. The
// HTTP layer does not construct adapters itself — it asks the process's
// wiring (which owns the Connection Pool and any per-agent adapter cache)
// for one, keeping this package free of a direct connpool/cognigystream
// dependency.
type SenderFor func(d agents.Descriptor) (adapter.Sender, error)

// Server hosts the six routes of spec.md §6's HTTP surface table.
type Server struct {
	Registry  *agents.Registry
	Executor  *executor.Executor
	Store     taskstore.Store
	SenderFor SenderFor
	StartedAt time.Time
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Metrics   *jsonrpc2.Metrics

	mux *http.ServeMux
}

// New wires every route onto a fresh ServeMux, with a JSON-RPC metrics
// instrument set built from the global OpenTelemetry meter provider.
func New(registry *agents.Registry, ex *executor.Executor, store taskstore.Store, senderFor SenderFor) *Server {
	s := &Server{
		Registry:  registry,
		Executor:  ex,
		Store:     store,
		SenderFor: senderFor,
		StartedAt: time.Now(),
		Logger:    slog.Default(),
		Tracer:    otel.GetTracerProvider().Tracer("github.com/sngueneko/cognigy-a2a-gateway/httpapi"),
		Metrics:   jsonrpc2.New(otel.GetMeterProvider().Meter("github.com/sngueneko/cognigy-a2a-gateway/httpapi")),
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /.well-known/agents.json", s.handleAgentsList)
	s.mux.HandleFunc("GET /agents", s.handleAgentsList)
	s.mux.HandleFunc("GET /agents/{id}/.well-known/agent-card.json", s.handleAgentCard)
	s.mux.HandleFunc("POST /agents/{id}/", s.handleJSONRPC)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /.well-known/agent-card.json", s.handleSingleAgentCardMissing)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigFastest.Marshal(v)
	if err != nil {
		s.Logger.Error("httpapi: marshal response failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) handleAgentsList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Registry.Cards())
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	card, ok := s.Registry.Card(id)
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleSingleAgentCardMissing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]any{
		"error": "this gateway hosts multiple agents; see /.well-known/agents.json for the full discovery list",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"agents":    s.Registry.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// jsonrpcEnvelope mirrors the teacher's inline request-decoding struct in
// server.go's processRequest, generalized to keep params raw until the
// method is known.
type jsonrpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// countingResponseWriter tracks bytes written and the final status code so
// handleJSONRPC can feed them to the jsonrpc2.Metrics instruments after the
// handler returns.
type countingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (c *countingResponseWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *countingResponseWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	n, err := c.ResponseWriter.Write(p)
	c.bytes += int64(n)
	return n, err
}

// Flush satisfies http.Flusher by delegating to the wrapped writer, so
// serveSSE's flush-per-frame behavior still works through the wrapper.
func (c *countingResponseWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.Tracer.Start(r.Context(), "httpapi.handleJSONRPC")
	defer span.End()

	cw := &countingResponseWriter{ResponseWriter: w}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeRPCError(cw, nil, a2a.NewInvalidRequestError(err.Error()))
		s.observe(ctx, "", int64(len(body)), cw, start)
		return
	}

	agentID := r.PathValue("id")
	descriptor, ok := s.Registry.Get(agentID)
	if !ok {
		s.writeRPCError(cw, nil, a2a.NewInvalidRequestError(fmt.Sprintf("unknown agent %q", agentID)))
		s.observe(ctx, "", int64(len(body)), cw, start)
		return
	}

	var env jsonrpcEnvelope
	if err := sonic.ConfigFastest.Unmarshal(body, &env); err != nil {
		s.writeRPCError(cw, nil, a2a.NewJSONParseError(err.Error()))
		s.observe(ctx, "", int64(len(body)), cw, start)
		return
	}
	span.SetAttributes(attribute.String("a2a.method", env.Method), attribute.String("gateway.agent_id", agentID))

	switch env.Method {
	case a2a.MethodMessageSend:
		s.handleMessageSend(ctx, cw, env, descriptor, false)
	case a2a.MethodMessageStream:
		s.handleMessageSend(ctx, cw, env, descriptor, true)
	case a2a.MethodTasksGet:
		s.handleTasksGet(ctx, cw, env)
	case a2a.MethodTasksCancel:
		s.handleTasksCancel(ctx, cw, env)
	default:
		s.writeRPCError(cw, env.ID, a2a.NewMethodNotFoundError(env.Method))
	}
	s.observe(ctx, env.Method, int64(len(body)), cw, start)
}

func (s *Server) observe(ctx context.Context, method string, recvBytes int64, cw *countingResponseWriter, start time.Time) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.Observe(ctx, method, recvBytes, cw.bytes, time.Since(start), cw.status >= 400)
}

func (s *Server) writeRPCError(w http.ResponseWriter, id any, rpcErr *a2a.JSONRPCError) {
	s.writeJSON(w, http.StatusOK, a2a.NewJSONRPCErrorResponse(id, rpcErr))
}

func decodeParams[T any](raw any) (*T, error) {
	data, err := sonic.ConfigFastest.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var v T
	if err := sonic.ConfigFastest.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
