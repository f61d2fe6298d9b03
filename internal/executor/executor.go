// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package executor implements the §4.6 Agent Executor: the per-request
// orchestrator that drives one upstream Sender, routes its normalized
// outputs to an event bus, and closes the task out with a terminal state.
// Grounded on the teacher's agent_execution.RequestContextBuilder /
// RequestContext shape (server/agent_execution), generalized from a
// request-context *construction* concern to the full execute/cancelTask
// orchestration spec.md §4.6 specifies.
package executor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/eventbus"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/tasksession"
)

// userIDPrefix is the fixed prefix §4.6 step 6 prepends to the context id
// to build the upstream user id.
const userIDPrefix = "a2a-gateway"

// genericErrorText is the single user-visible failure message §7 allows;
// no raw error text or stack trace is ever surfaced to the client.
const genericErrorText = "An error occurred while processing your request."

// RequestContext is the subset of an A2A message/send invocation the
// executor needs, built by the HTTP surface (the framework's
// RequestContextBuilder equivalent) from the decoded JSON-RPC params.
type RequestContext struct {
	TaskID    string
	ContextID string
	// UserText is the first text part of the incoming user message, or
	// empty if absent.
	UserText string
	// CognigyData is the incoming message's metadata["cognigyData"] when
	// present and a map.
	CognigyData map[string]any
	HasData     bool
}

// Executor orchestrates invocations against a resolved Sender.
type Executor struct {
	Registry *tasksession.Registry
	Logger   *slog.Logger
}

// New returns an Executor backed by registry.
func New(registry *tasksession.Registry) *Executor {
	return &Executor{Registry: registry, Logger: slog.Default()}
}

// Execute runs one A2A invocation to completion against sender, publishing
// events to bus per §4.6's algorithm.
func (ex *Executor) Execute(rc RequestContext, sender adapter.Sender, bus *eventbus.Bus) {
	sig := tasksession.NewSignal()
	ex.Registry.Register(rc.TaskID, sig)
	defer ex.Registry.Deregister(rc.TaskID)

	isStream := sender.Kind() == adapter.KindStream

	if isStream {
		ex.publishOpening(rc, bus)
	}

	var cb adapter.Callback
	if isStream {
		cb = func(raw normalizer.RawOutput, index int) {
			if sig.Canceled() {
				return
			}
			ex.publishOutput(rc, raw, bus)
		}
	}

	sc := adapter.SendContext{
		Text:      rc.UserText,
		SessionID: rc.ContextID,
		UserID:    fmt.Sprintf("%s-%s", userIDPrefix, rc.ContextID),
		Data:      rc.CognigyData,
		HasData:   rc.HasData,
	}

	outputs, err := sender.Send(sc, cb)
	if err != nil {
		ex.Logger.Error("executor: adapter send failed", slog.String("taskId", rc.TaskID), slog.Any("error", err))
		ex.publishFailure(rc, isStream, bus)
		bus.Finish()
		return
	}

	if sig.Canceled() {
		ex.publishCanceled(rc, bus)
		bus.Finish()
		return
	}

	if isStream {
		ex.publishCompleted(rc, bus)
	} else {
		parts := normalizer.Flatten(outputs)
		msg := a2a.NewAgentMessage(rc.TaskID, rc.ContextID, parts...)
		bus.Publish(&eventbus.MessageEvent{Message: msg})
	}
	bus.Finish()
}

// CancelTask requests cancellation of taskID. If a matching in-flight
// execution is found, its own Execute call will publish the terminal
// canceled event; otherwise this call publishes a synthetic one directly,
// covering the register-vs-cancel race called out in spec.md §5.
func (ex *Executor) CancelTask(taskID, contextID string, bus *eventbus.Bus) {
	if ex.Registry.Cancel(taskID) {
		return
	}
	bus.Publish(&eventbus.StatusUpdateEvent{Event: &a2a.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    taskID,
		ContextID: contextID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateCanceled,
			Timestamp: nowRFC3339(),
		},
		Final: true,
	}})
	bus.Finish()
}

func (ex *Executor) publishOpening(rc RequestContext, bus *eventbus.Bus) {
	bus.Publish(&eventbus.StatusUpdateEvent{Event: &a2a.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    rc.TaskID,
		ContextID: rc.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateWorking, Timestamp: nowRFC3339()},
		Final:     false,
	}})
}

func (ex *Executor) publishOutput(rc RequestContext, raw normalizer.RawOutput, bus *eventbus.Bus) {
	out, err := normalizer.Normalize(raw)
	if err != nil {
		ex.Logger.Warn("executor: normalize failed, dropping output", slog.String("taskId", rc.TaskID), slog.Any("error", err))
		return
	}

	switch out.Kind {
	case normalizer.KindStatusMessage:
		msg := a2a.NewAgentMessage(rc.TaskID, rc.ContextID, out.Parts...)
		bus.Publish(&eventbus.StatusUpdateEvent{Event: &a2a.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    rc.TaskID,
			ContextID: rc.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateWorking, Message: msg, Timestamp: nowRFC3339()},
			Final:     false,
		}})
	case normalizer.KindArtifact:
		artifact := &a2a.Artifact{ArtifactID: uuid.NewString(), Name: out.Name, Parts: out.Parts}
		bus.Publish(&eventbus.ArtifactUpdateEvent{Event: &a2a.TaskArtifactUpdateEvent{
			Kind:      "artifact-update",
			TaskID:    rc.TaskID,
			ContextID: rc.ContextID,
			Artifact:  artifact,
			Append:    false,
			LastChunk: true,
		}})
	}
}

func (ex *Executor) publishCompleted(rc RequestContext, bus *eventbus.Bus) {
	bus.Publish(&eventbus.StatusUpdateEvent{Event: &a2a.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    rc.TaskID,
		ContextID: rc.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: nowRFC3339()},
		Final:     true,
	}})
}

func (ex *Executor) publishCanceled(rc RequestContext, bus *eventbus.Bus) {
	bus.Publish(&eventbus.StatusUpdateEvent{Event: &a2a.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    rc.TaskID,
		ContextID: rc.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: nowRFC3339()},
		Final:     true,
	}})
}

func (ex *Executor) publishFailure(rc RequestContext, isStream bool, bus *eventbus.Bus) {
	if isStream {
		bus.Publish(&eventbus.StatusUpdateEvent{Event: &a2a.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    rc.TaskID,
			ContextID: rc.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateFailed, Timestamp: nowRFC3339()},
			Final:     true,
		}})
		return
	}
	msg := a2a.NewAgentMessage(rc.TaskID, rc.ContextID, a2a.NewTextPart(genericErrorText))
	bus.Publish(&eventbus.MessageEvent{Message: msg})
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }
