// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"testing"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
)

func testDescriptors() []Descriptor {
	return []Descriptor{
		{ID: "a1", Name: "Agent One", Transport: adapter.KindReq, Skills: []Skill{{ID: "s1", Name: "Skill"}}},
		{ID: "a2", Name: "Agent Two", Transport: adapter.KindStream, Skills: []Skill{{ID: "s2", Name: "Skill"}}},
	}
}

func TestRegistryLookupAndCards(t *testing.T) {
	t.Parallel()

	r, err := New(testDescriptors(), func(id string) string { return "https://gw/agents/" + id + "/" })
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if !r.Has("a1") || r.Has("missing") {
		t.Fatal("Has() mismatch")
	}
	card, ok := r.Card("a2")
	if !ok {
		t.Fatal("expected card for a2")
	}
	if !card.Capabilities.Streaming {
		t.Error("expected streaming capability for STREAM agent")
	}
	card1, _ := r.Card("a1")
	if card1.Capabilities.Streaming {
		t.Error("expected no streaming capability for REQ agent")
	}
	if len(r.Cards()) != 2 {
		t.Fatalf("Cards() length = %d, want 2", len(r.Cards()))
	}
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	dups := []Descriptor{
		{ID: "a1", Name: "One", Skills: []Skill{{ID: "s1"}}},
		{ID: "a1", Name: "Two", Skills: []Skill{{ID: "s2"}}},
	}
	_, err := New(dups, func(id string) string { return id })
	if err == nil {
		t.Fatal("expected error for duplicate ids")
	}
}
