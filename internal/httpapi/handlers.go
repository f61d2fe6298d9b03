// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/agents"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/eventbus"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/executor"
)

// taskSink mirrors the task the executor is driving off each published
// event, persisting the running Task to the Store so a concurrent
// tasks/get observes the latest status even mid-stream, and optionally
// forwarding every event to an SSE frame writer for message/stream calls.
type taskSink struct {
	ctx    context.Context
	task   *a2a.Task
	server *Server
	frame  func(eventbus.Event) error // nil for message/send
}

func (s *taskSink) Send(ev eventbus.Event) error {
	switch e := ev.(type) {
	case *eventbus.MessageEvent:
		s.task.Transition(a2a.TaskStateCompleted, e.Message)
	case *eventbus.StatusUpdateEvent:
		s.task.Transition(e.Event.Status.State, e.Event.Status.Message)
	case *eventbus.ArtifactUpdateEvent:
		s.task.AppendArtifact(e.Event.Artifact, e.Event.Append)
	}
	if err := s.server.Store.Save(s.ctx, s.task); err != nil {
		s.server.Logger.Error("httpapi: save task failed", slog.String("taskId", s.task.ID), slog.Any("error", err))
	}
	if s.frame != nil {
		return s.frame(ev)
	}
	return nil
}

// buildRequestContext extracts the fields the Agent Executor needs from a
// decoded message/send or message/stream params object: the first text
// part becomes the user text, and the incoming message's
// metadata["cognigyData"], when it is a map, is the structured payload
// forwarded upstream.
func buildRequestContext(task *a2a.Task, params *a2a.MessageSendParams) executor.RequestContext {
	rc := executor.RequestContext{TaskID: task.ID, ContextID: task.ContextID}
	for _, p := range params.Message.Parts {
		if tp, ok := p.(*a2a.TextPart); ok && rc.UserText == "" {
			rc.UserText = tp.Text
		}
	}
	if params.Message.Metadata != nil {
		if data, ok := params.Message.Metadata["cognigyData"].(map[string]any); ok {
			rc.CognigyData = data
			rc.HasData = true
		}
	}
	return rc
}

func (s *Server) handleMessageSend(ctx context.Context, w http.ResponseWriter, env jsonrpcEnvelope, descriptor agents.Descriptor, streaming bool) {
	params, err := decodeParams[a2a.MessageSendParams](env.Params)
	if err != nil {
		s.writeRPCError(w, env.ID, a2a.NewInvalidParamsError(err.Error()))
		return
	}
	if err := params.Validate(); err != nil {
		s.writeRPCError(w, env.ID, a2a.NewInvalidParamsError(err.Error()))
		return
	}

	sender, err := s.SenderFor(descriptor)
	if err != nil {
		s.writeRPCError(w, env.ID, a2a.NewUpstreamUnavailableError(err.Error()))
		return
	}

	contextID := params.Message.ContextID
	task := a2a.NewTask(contextID, params.Message)
	params.Message.TaskID = task.ID
	params.Message.ContextID = task.ContextID

	rc := buildRequestContext(task, params)

	if streaming {
		s.serveSSE(ctx, w, task, rc, sender)
		return
	}

	sink := &taskSink{ctx: ctx, task: task, server: s}
	bus := eventbus.New(sink)
	s.Executor.Execute(rc, sender, bus)

	s.writeJSON(w, http.StatusOK, a2a.NewJSONRPCSuccessResponse(env.ID, task))
}

// serveSSE drives one Execute call with a Sink that writes each published
// event as an SSE frame as soon as it is published, matching the
// event-per-flush framing the teacher's client/stream.go reads on the
// other end (an "event: message" line, a "data: <json>" line, a blank
// line). Execute is synchronous, so the frames are written from the same
// goroutine handling the request; the ResponseWriter is flushed after
// every frame so the client sees it without buffering delay.
func (s *Server) serveSSE(ctx context.Context, w http.ResponseWriter, task *a2a.Task, rc executor.RequestContext, sender adapter.Sender) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	frame := func(ev eventbus.Event) error {
		var result any
		switch e := ev.(type) {
		case *eventbus.MessageEvent:
			result = e.Message
		case *eventbus.StatusUpdateEvent:
			result = e.Event
		case *eventbus.ArtifactUpdateEvent:
			result = e.Event
		}
		data, err := sonic.ConfigFastest.Marshal(a2a.NewJSONRPCSuccessResponse(nil, result))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	sink := &taskSink{ctx: ctx, task: task, server: s, frame: frame}
	bus := eventbus.New(sink)
	s.Executor.Execute(rc, sender, bus)
}

func (s *Server) handleTasksGet(ctx context.Context, w http.ResponseWriter, env jsonrpcEnvelope) {
	params, err := decodeParams[a2a.TaskQueryParams](env.Params)
	if err != nil || params.ID == "" {
		s.writeRPCError(w, env.ID, a2a.NewInvalidParamsError("id is required"))
		return
	}

	task, ok, err := s.Store.Load(ctx, params.ID)
	if err != nil {
		s.writeRPCError(w, env.ID, a2a.NewInternalError(err.Error()))
		return
	}
	if !ok {
		s.writeRPCError(w, env.ID, a2a.NewTaskNotFoundError(params.ID))
		return
	}

	result := task
	if params.HistoryLength > 0 && len(task.History) > params.HistoryLength {
		truncated := *task
		truncated.History = task.History[len(task.History)-params.HistoryLength:]
		result = &truncated
	}

	s.writeJSON(w, http.StatusOK, a2a.NewJSONRPCSuccessResponse(env.ID, result))
}

func (s *Server) handleTasksCancel(ctx context.Context, w http.ResponseWriter, env jsonrpcEnvelope) {
	params, err := decodeParams[a2a.TaskIDParams](env.Params)
	if err != nil || params.ID == "" {
		s.writeRPCError(w, env.ID, a2a.NewInvalidParamsError("id is required"))
		return
	}

	task, ok, err := s.Store.Load(ctx, params.ID)
	if err != nil {
		s.writeRPCError(w, env.ID, a2a.NewInternalError(err.Error()))
		return
	}
	if !ok {
		s.writeRPCError(w, env.ID, a2a.NewTaskNotFoundError(params.ID))
		return
	}
	if task.Status.State.IsTerminal() {
		s.writeRPCError(w, env.ID, a2a.NewTaskNotCancelableError(params.ID))
		return
	}

	sink := &taskSink{ctx: ctx, task: task, server: s}
	bus := eventbus.New(sink)
	s.Executor.CancelTask(task.ID, task.ContextID, bus)

	s.writeJSON(w, http.StatusOK, a2a.NewJSONRPCSuccessResponse(env.ID, task))
}
