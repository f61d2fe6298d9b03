// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agents holds the resolved Agent Descriptor list and precomputed
// discovery cards (§4.7 Agent Registry), offering O(1) lookup by id.
// Grounded on the teacher's AgentCard shape in types.go, generalized from
// a single-agent client concern to a multi-agent server-side registry.
package agents

import (
	"fmt"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
)

// Skill mirrors one a2a.AgentSkill entry on a Descriptor, pre-validated by
// the config loader.
type Skill struct {
	ID          string
	Name        string
	Description string
	Tags        []string
}

// Descriptor is the §3 Agent Descriptor: immutable after startup.
type Descriptor struct {
	ID              string
	Name            string
	Description     string
	Version         string
	Transport       adapter.Kind
	EndpointBaseURL string
	EndpointToken   string
	Skills          []Skill
}

// Registry holds every resolved Descriptor plus one precomputed discovery
// card per agent, built once at construction time.
type Registry struct {
	descriptors map[string]Descriptor
	cards       map[string]*a2a.AgentCard
	order       []string
}

// New builds a Registry from the resolved descriptor list supplied by
// config loading. cardURLFor formats the per-agent discovery URL (e.g.
// "<base>/agents/<id>/"). Construction fails if any id is duplicated.
func New(descriptors []Descriptor, cardURLFor func(id string) string) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(descriptors)),
		cards:       make(map[string]*a2a.AgentCard, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, exists := r.descriptors[d.ID]; exists {
			return nil, fmt.Errorf("agents: duplicate agent id %q", d.ID)
		}
		r.descriptors[d.ID] = d
		r.cards[d.ID] = buildCard(d, cardURLFor(d.ID))
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

func buildCard(d Descriptor, url string) *a2a.AgentCard {
	skills := make([]a2a.AgentSkill, 0, len(d.Skills))
	for _, s := range d.Skills {
		skills = append(skills, a2a.AgentSkill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        append([]string(nil), s.Tags...),
		})
	}
	return &a2a.AgentCard{
		ProtocolVersion: a2a.ProtocolVersion,
		Name:            d.Name,
		Description:     d.Description,
		URL:             url,
		Version:         d.Version,
		Capabilities: a2a.AgentCapabilities{
			Streaming:              d.Transport == adapter.KindStream,
			PushNotifications:      false,
			StateTransitionHistory: false,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             skills,
	}
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.descriptors[id]
	return d, ok
}

// Has reports whether id is a registered agent.
func (r *Registry) Has(id string) bool {
	_, ok := r.descriptors[id]
	return ok
}

// Card returns the precomputed discovery card for id.
func (r *Registry) Card(id string) (*a2a.AgentCard, bool) {
	c, ok := r.cards[id]
	return c, ok
}

// Cards returns every discovery card, in registration order.
func (r *Registry) Cards() []*a2a.AgentCard {
	out := make([]*a2a.AgentCard, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cards[id])
	}
	return out
}

// Len reports how many agents are registered.
func (r *Registry) Len() int { return len(r.order) }
