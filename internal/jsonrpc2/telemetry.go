// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package jsonrpc2 holds the OpenTelemetry metric instruments the HTTP
// surface records against every JSON-RPC call it dispatches.
package jsonrpc2

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics is the set of instruments one HTTP surface records against.
type Metrics struct {
	started   metric.Int64Counter
	sentBytes metric.Int64Counter
	recvBytes metric.Int64Counter
	latency   metric.Float64Histogram
}

// New builds the instrument set from m, falling back to no-op instruments
// if registration fails (the teacher's own newMetrics pattern, generalized
// to be constructed rather than package-global so tests can pass a fresh
// meter per Server instance).
func New(m metric.Meter) *Metrics {
	mm := &Metrics{}

	var err error
	mm.started, err = m.Int64Counter("jsonrpc.requests",
		metric.WithDescription("Count of dispatched JSON-RPC calls"))
	if err != nil {
		otel.Handle(err)
		mm.started = noop.Int64Counter{}
	}

	mm.sentBytes, err = m.Int64Counter("jsonrpc.sent_bytes",
		metric.WithDescription("Bytes written in JSON-RPC responses"))
	if err != nil {
		otel.Handle(err)
		mm.sentBytes = noop.Int64Counter{}
	}

	mm.recvBytes, err = m.Int64Counter("jsonrpc.received_bytes",
		metric.WithDescription("Bytes read from JSON-RPC request bodies"))
	if err != nil {
		otel.Handle(err)
		mm.recvBytes = noop.Int64Counter{}
	}

	mm.latency, err = m.Float64Histogram("jsonrpc.latency",
		metric.WithDescription("JSON-RPC call latency"), metric.WithUnit("ms"))
	if err != nil {
		otel.Handle(err)
		mm.latency = noop.Float64Histogram{}
	}

	return mm
}

// Observe records one completed JSON-RPC call.
func (mm *Metrics) Observe(ctx context.Context, method string, recvBytes, sentBytes int64, dur time.Duration, failed bool) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("failed", failed),
	)
	mm.started.Add(ctx, 1, attrs)
	mm.recvBytes.Add(ctx, recvBytes, attrs)
	mm.sentBytes.Add(ctx, sentBytes, attrs)
	mm.latency.Record(ctx, float64(dur.Microseconds())/1000.0, attrs)
}
