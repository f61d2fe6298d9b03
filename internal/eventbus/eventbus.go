// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventbus is the ordered, closable sink the Agent Executor
// publishes A2A events to during one invocation. It generalizes the
// teacher's server/event.Event interface from a generic queue manager to
// the fixed three-event vocabulary this gateway emits: a terminal agent
// Message (REQ path), a TaskStatusUpdateEvent, or a TaskArtifactUpdateEvent
// (STREAM path).
package eventbus

import (
	"fmt"
	"sync"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
)

// Event is the unified interface every published event satisfies: a
// subset of the teacher's event.Event shape (EventType and Validate).
type Event interface {
	EventType() string
	Validate() error
}

// MessageEvent carries the single agent Message a REQ invocation publishes.
type MessageEvent struct {
	Message *a2a.Message
}

func (e *MessageEvent) EventType() string { return "message" }

func (e *MessageEvent) Validate() error {
	if e.Message == nil {
		return fmt.Errorf("message event: message is required")
	}
	return e.Message.Validate()
}

// StatusUpdateEvent announces a Task's status transition.
type StatusUpdateEvent struct {
	Event *a2a.TaskStatusUpdateEvent
}

func (e *StatusUpdateEvent) EventType() string { return "task-status-update" }

func (e *StatusUpdateEvent) Validate() error {
	if e.Event == nil || e.Event.TaskID == "" {
		return fmt.Errorf("status update event: taskId is required")
	}
	return nil
}

// ArtifactUpdateEvent announces a produced Artifact.
type ArtifactUpdateEvent struct {
	Event *a2a.TaskArtifactUpdateEvent
}

func (e *ArtifactUpdateEvent) EventType() string { return "task-artifact-update" }

func (e *ArtifactUpdateEvent) Validate() error {
	if e.Event == nil || e.Event.TaskID == "" {
		return fmt.Errorf("artifact update event: taskId is required")
	}
	if e.Event.Artifact == nil {
		return fmt.Errorf("artifact update event: artifact is required")
	}
	return nil
}

// Bus is a single-invocation, single-writer event sink. Publish is
// synchronous: the spec requires every event-bus publish inside execute to
// happen in-line with no suspension, so Bus does not buffer on a channel —
// it calls through to a Sink. The HTTP surface's Sink persists the task on
// every event and, for message/stream calls, also writes each event as an
// SSE frame; message/send calls return the final task as one result.
type Bus struct {
	mu       sync.Mutex
	sink     Sink
	finished bool
	events   []Event
}

// Sink receives each event as it is published. Implementations in
// internal/httpapi translate Event into the wire JSON-RPC result/SSE frame.
type Sink interface {
	Send(Event) error
}

// New returns a Bus that publishes to sink. A nil sink is legal for tests
// that only want to inspect Events() after the fact.
func New(sink Sink) *Bus {
	return &Bus{sink: sink}
}

// Publish sends ev to the sink and records it. Publish after Finish is a
// programming error and is rejected rather than silently accepted, since
// spec.md §4.6's ordering guarantee depends on the terminal event always
// being last.
func (b *Bus) Publish(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return fmt.Errorf("eventbus: publish after finish: %s", ev.EventType())
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("eventbus: invalid event: %w", err)
	}
	b.events = append(b.events, ev)
	if b.sink != nil {
		return b.sink.Send(ev)
	}
	return nil
}

// Finish marks the bus closed. Any later Publish call is rejected.
func (b *Bus) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = true
}

// Finished reports whether Finish has been called.
func (b *Bus) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// Events returns every event published so far, in publish order. Intended
// for tests asserting the §8 ordering invariants.
func (b *Bus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
