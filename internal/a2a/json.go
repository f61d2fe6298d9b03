// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// rawMessage and rawArtifact mirror Message/Artifact with Parts left as raw
// JSON so each element's kind can be inspected before it is decoded into a
// concrete Part implementation.

type rawMessage struct {
	Kind      string           `json:"kind"`
	MessageID string           `json:"messageId"`
	Role      MessageRole      `json:"role"`
	Parts     []jsontext.Value `json:"parts"`
	ContextID string           `json:"contextId,omitzero"`
	TaskID    string           `json:"taskId,omitzero"`
	Metadata  map[string]any   `json:"metadata,omitzero"`
}

func decodePart(raw jsontext.Value) (Part, error) {
	var disc struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("decode part kind: %w", err)
	}
	switch disc.Kind {
	case "text":
		var p TextPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode text part: %w", err)
		}
		return &p, nil
	case "data":
		var p DataPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode data part: %w", err)
		}
		return &p, nil
	case "file":
		var p FilePart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode file part: %w", err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown part kind %q", disc.Kind)
	}
}

func decodeParts(raws []jsontext.Value) ([]Part, error) {
	parts := make([]Part, len(raws))
	for i, raw := range raws {
		p, err := decodePart(raw)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		parts[i] = p
	}
	return parts, nil
}

// Message and Artifact need no MarshalJSON: Parts holds concrete
// *TextPart/*DataPart/*FilePart values, each already tagged with its own
// "kind" field, so the default struct encoding round-trips correctly.
// Only decoding needs help, since json cannot unmarshal into an interface
// without knowing which concrete type to pick.

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	parts, err := decodeParts(raw.Parts)
	if err != nil {
		return fmt.Errorf("decode message parts: %w", err)
	}
	m.Kind = raw.Kind
	m.MessageID = raw.MessageID
	m.Role = raw.Role
	m.Parts = parts
	m.ContextID = raw.ContextID
	m.TaskID = raw.TaskID
	m.Metadata = raw.Metadata
	return nil
}

type rawArtifact struct {
	ArtifactID  string           `json:"artifactId"`
	Name        string           `json:"name,omitzero"`
	Description string           `json:"description,omitzero"`
	Parts       []jsontext.Value `json:"parts"`
	Metadata    map[string]any   `json:"metadata,omitzero"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	parts, err := decodeParts(raw.Parts)
	if err != nil {
		return fmt.Errorf("decode artifact parts: %w", err)
	}
	a.ArtifactID = raw.ArtifactID
	a.Name = raw.Name
	a.Description = raw.Description
	a.Parts = parts
	a.Metadata = raw.Metadata
	return nil
}
