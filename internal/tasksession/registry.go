// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package tasksession tracks in-flight task executions so a concurrent
// tasks/cancel request can cooperatively abort a running Agent Executor
// invocation.
package tasksession

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Signal is a cooperative cancellation flag. Setting it does not interrupt
// in-flight I/O; callers poll Canceled() at safe points and short-circuit
// post-upstream work.
type Signal struct {
	fired atomic.Bool
}

// NewSignal returns a Signal in the not-canceled state.
func NewSignal() *Signal {
	return &Signal{}
}

// Cancel sets the signal, reporting whether this call transitioned it
// (false if it was already set).
func (s *Signal) Cancel() bool {
	return s.fired.CompareAndSwap(false, true)
}

// Canceled reports whether Cancel has been called.
func (s *Signal) Canceled() bool {
	return s.fired.Load()
}

// Registry maps an in-flight task id to its cancellation Signal.
type Registry struct {
	mu      sync.Mutex
	signals map[string]*Signal
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{signals: make(map[string]*Signal)}
}

// Register associates sig with taskID. If a signal is already registered
// for taskID, it is replaced and a warning is logged.
func (r *Registry) Register(taskID string, sig *Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.signals[taskID]; exists {
		slog.Warn("tasksession: duplicate registration", slog.String("taskID", taskID))
	}
	r.signals[taskID] = sig
}

// Deregister removes the entry for taskID, if any. It is a no-op if taskID
// is not registered.
func (r *Registry) Deregister(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.signals, taskID)
}

// Cancel fires the signal registered for taskID, reporting whether one was
// found. The running executor discovers the cancellation the next time it
// polls the signal; this call never blocks on in-flight work.
func (r *Registry) Cancel(taskID string) bool {
	r.mu.Lock()
	sig, ok := r.signals[taskID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	sig.Cancel()
	return true
}

// Len reports the number of in-flight entries. Intended for tests that
// assert the registry drains to empty after every execution.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}
