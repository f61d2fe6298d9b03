// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"context"
	"testing"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	task := a2a.NewTask("ctx-1", a2a.NewAgentMessage("", "ctx-1", a2a.NewTextPart("hi")))
	if err := s.Save(ctx, task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Load(ctx, task.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected task to be found")
	}
	if got.ID != task.ID {
		t.Fatalf("got id %q, want %q", got.ID, task.ID)
	}
}

func TestLoadMissing(t *testing.T) {
	s := NewInMemoryStore()
	_, ok, err := s.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing task")
	}
}

func TestSaveNilTask(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.Save(context.Background(), nil); err == nil {
		t.Fatal("expected error saving nil task")
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	task := a2a.NewTask("ctx-1", a2a.NewAgentMessage("", "ctx-1", a2a.NewTextPart("hi")))
	task.ID = "task-1"
	if err := s.Save(ctx, task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	task.Transition(a2a.TaskStateCompleted, nil)
	if err := s.Save(ctx, task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _, _ := s.Load(ctx, "task-1")
	if got.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("got state %q, want completed", got.Status.State)
	}
}
