// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"fmt"
	"testing"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/eventbus"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/tasksession"
)

// fakeSender is a Sender test double that replays a fixed output list,
// invoking cb synchronously for each one when kind is STREAM.
type fakeSender struct {
	kind    adapter.Kind
	outputs []normalizer.RawOutput
	err     error
	onSend  func()
}

func (f *fakeSender) Kind() adapter.Kind { return f.kind }

func (f *fakeSender) Send(sc adapter.SendContext, cb adapter.Callback) ([]normalizer.RawOutput, error) {
	if f.onSend != nil {
		f.onSend()
	}
	if f.err != nil {
		return nil, f.err
	}
	if cb != nil {
		for i, o := range f.outputs {
			cb(o, i)
		}
	}
	return f.outputs, nil
}

func newBus() *eventbus.Bus { return eventbus.New(nil) }

func TestExecuteReqPlainText(t *testing.T) {
	t.Parallel()

	ex := New(tasksession.New())
	bus := newBus()
	sender := &fakeSender{kind: adapter.KindReq, outputs: []normalizer.RawOutput{{Text: "Hello", HasText: true}}}

	ex.Execute(RequestContext{TaskID: "t1", ContextID: "c1"}, sender, bus)

	events := bus.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event for REQ, got %d", len(events))
	}
	me, ok := events[0].(*eventbus.MessageEvent)
	if !ok {
		t.Fatalf("expected MessageEvent, got %T", events[0])
	}
	if len(me.Message.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(me.Message.Parts))
	}
	tp, ok := me.Message.Parts[0].(*a2a.TextPart)
	if !ok || tp.Text != "Hello" {
		t.Fatalf("unexpected part: %+v", me.Message.Parts[0])
	}
	if !bus.Finished() {
		t.Error("expected bus finished")
	}
	if ex.Registry.Len() != 0 {
		t.Error("expected registry drained after execute")
	}
}

func TestExecuteStreamThreePlainTextOutputs(t *testing.T) {
	t.Parallel()

	ex := New(tasksession.New())
	bus := newBus()
	sender := &fakeSender{kind: adapter.KindStream, outputs: []normalizer.RawOutput{
		{Text: "p1", HasText: true}, {Text: "p2", HasText: true}, {Text: "p3", HasText: true},
	}}

	ex.Execute(RequestContext{TaskID: "t1", ContextID: "c1"}, sender, bus)

	events := bus.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 events (open + 3 + completed), got %d", len(events))
	}
	first := events[0].(*eventbus.StatusUpdateEvent)
	if first.Event.Status.State != a2a.TaskStateWorking || first.Event.Status.Message != nil {
		t.Errorf("expected opening working status with no message, got %+v", first.Event)
	}
	last := events[len(events)-1].(*eventbus.StatusUpdateEvent)
	if last.Event.Status.State != a2a.TaskStateCompleted || !last.Event.Final {
		t.Errorf("expected terminal completed event, got %+v", last.Event)
	}
}

func TestExecuteStreamWithImage(t *testing.T) {
	t.Parallel()

	ex := New(tasksession.New())
	bus := newBus()
	sender := &fakeSender{kind: adapter.KindStream, outputs: []normalizer.RawOutput{
		{Text: "Look", HasText: true},
		{Data: map[string]any{"_image": map[string]any{"imageUrl": "https://cdn.example/photo.png"}}},
	}}

	ex.Execute(RequestContext{TaskID: "t1", ContextID: "c1"}, sender, bus)

	events := bus.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	artifactEv, ok := events[2].(*eventbus.ArtifactUpdateEvent)
	if !ok {
		t.Fatalf("expected artifact-update event at index 2, got %T", events[2])
	}
	if artifactEv.Event.Artifact == nil || !artifactEv.Event.LastChunk || artifactEv.Event.Append {
		t.Fatalf("unexpected artifact event: %+v", artifactEv.Event)
	}
	if fp, ok := artifactEv.Event.Artifact.Parts[0].(*a2a.FilePart); !ok || fp.MIMEType != "image/png" {
		t.Fatalf("expected file part with image/png, got %+v", artifactEv.Event.Artifact.Parts[0])
	}
}

func TestExecuteCancelMidStream(t *testing.T) {
	t.Parallel()

	registry := tasksession.New()
	ex := New(registry)
	bus := newBus()

	sender := &fakeSender{
		kind:    adapter.KindStream,
		outputs: []normalizer.RawOutput{{Text: "p1", HasText: true}, {Text: "p2", HasText: true}},
		onSend: func() {
			registry.Cancel("t1")
		},
	}

	ex.Execute(RequestContext{TaskID: "t1", ContextID: "c1"}, sender, bus)

	events := bus.Events()
	last := events[len(events)-1].(*eventbus.StatusUpdateEvent)
	if last.Event.Status.State != a2a.TaskStateCanceled || !last.Event.Final {
		t.Fatalf("expected terminal canceled event, got %+v", last.Event)
	}
	for _, ev := range events[:len(events)-1] {
		if su, ok := ev.(*eventbus.StatusUpdateEvent); ok && su.Event.Status.Message != nil {
			t.Errorf("expected no per-output message events after cancel, got one")
		}
	}
}

func TestExecuteReqFailure(t *testing.T) {
	t.Parallel()

	ex := New(tasksession.New())
	bus := newBus()
	sender := &fakeSender{kind: adapter.KindReq, err: &adapter.Error{Kind: adapter.ErrHTTP, StatusCode: 500, Cause: fmt.Errorf("boom")}}

	ex.Execute(RequestContext{TaskID: "t1", ContextID: "c1"}, sender, bus)

	events := bus.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	me := events[0].(*eventbus.MessageEvent)
	tp := me.Message.Parts[0].(*a2a.TextPart)
	if tp.Text != genericErrorText {
		t.Fatalf("unexpected error text: %q", tp.Text)
	}
}

func TestExecuteStreamFailure(t *testing.T) {
	t.Parallel()

	ex := New(tasksession.New())
	bus := newBus()
	sender := &fakeSender{kind: adapter.KindStream, err: &adapter.Error{Kind: adapter.ErrSessionTimeout, Cause: fmt.Errorf("timeout")}}

	ex.Execute(RequestContext{TaskID: "t1", ContextID: "c1"}, sender, bus)

	events := bus.Events()
	last := events[len(events)-1].(*eventbus.StatusUpdateEvent)
	if last.Event.Status.State != a2a.TaskStateFailed || !last.Event.Final {
		t.Fatalf("expected terminal failed event, got %+v", last.Event)
	}
}

func TestCancelTaskNoInFlightPublishesSynthetic(t *testing.T) {
	t.Parallel()

	ex := New(tasksession.New())
	bus := newBus()
	ex.CancelTask("unknown-task", "c1", bus)

	events := bus.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	su := events[0].(*eventbus.StatusUpdateEvent)
	if su.Event.Status.State != a2a.TaskStateCanceled || !su.Event.Final {
		t.Fatalf("unexpected event: %+v", su.Event)
	}
	if !bus.Finished() {
		t.Error("expected bus finished")
	}
}

func TestCancelTaskInFlightDoesNotPublishDirectly(t *testing.T) {
	t.Parallel()

	registry := tasksession.New()
	ex := New(registry)
	registry.Register("t1", tasksession.NewSignal())

	bus := newBus()
	ex.CancelTask("t1", "c1", bus)

	if len(bus.Events()) != 0 {
		t.Fatalf("expected no events published directly when an in-flight signal was found")
	}
	registry.Deregister("t1")
}
