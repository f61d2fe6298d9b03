// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config implements §4.9 Config Loader: reading the agents JSON
// document, resolving `${VAR}` placeholders against the process
// environment, and validating the result into []agents.Descriptor.
// Grounded on the teacher's pervasive `Validate() error` method convention
// (types.go) generalized from wire-type validation to config-document
// validation, and on go-json-experiment/json for decoding, matching the
// internal type layer's choice of JSON library (§4.10 reserves
// bytedance/sonic for the HTTP hot path only).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/agents"
)

// Error is a fatal, startup-only configuration error (§7 taxonomy:
// "configuration").
type Error struct {
	Detail string
}

func (e *Error) Error() string { return "configuration: " + e.Detail }

func fail(format string, args ...any) error {
	return &Error{Detail: fmt.Sprintf(format, args...)}
}

type document struct {
	Agents []agentDoc `json:"agents"`
}

type skillDoc struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

type agentDoc struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Version         string     `json:"version"`
	Transport       string     `json:"transport"`
	EndpointBaseURL string     `json:"endpointBaseUrl"`
	EndpointToken   string     `json:"endpointToken"`
	Skills          []skillDoc `json:"skills"`
}

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substitute resolves every `${VAR}` placeholder in s against env. An
// unresolved or empty-value substitution is a fatal configuration error.
func substitute(s string, env map[string]string) (string, error) {
	var firstErr error
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		val, ok := env[name]
		if !ok || val == "" {
			if firstErr == nil {
				firstErr = fail("environment variable %q is unresolved or empty", name)
			}
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func environMap() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

// Load reads and validates the agents document at path, returning the
// resolved descriptor list the Agent Registry consumes.
func Load(path string) ([]agents.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail("read config file %q: %v", path, err)
	}
	return Parse(data)
}

// Parse validates a raw config document, substituting `${VAR}`
// placeholders from the process environment. Exported separately from
// Load so tests can supply a document without a filesystem round trip.
func Parse(data []byte) ([]agents.Descriptor, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fail("invalid JSON: %v", err)
	}
	if len(doc.Agents) == 0 {
		return nil, fail("no agents configured")
	}

	env := environMap()
	seen := make(map[string]bool, len(doc.Agents))
	out := make([]agents.Descriptor, 0, len(doc.Agents))

	for i, a := range doc.Agents {
		d, err := resolveAgent(a, env)
		if err != nil {
			return nil, fail("agent[%d]: %v", i, err)
		}
		if seen[d.ID] {
			return nil, fail("duplicate agent id %q", d.ID)
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}

func resolveAgent(a agentDoc, env map[string]string) (agents.Descriptor, error) {
	resolve := func(s string) (string, error) { return substitute(s, env) }

	id, err := resolve(a.ID)
	if err != nil || id == "" {
		return agents.Descriptor{}, orErr(err, "id is required")
	}
	name, err := resolve(a.Name)
	if err != nil {
		return agents.Descriptor{}, err
	}
	description, err := resolve(a.Description)
	if err != nil {
		return agents.Descriptor{}, err
	}
	version, err := resolve(a.Version)
	if err != nil {
		return agents.Descriptor{}, err
	}

	var transport adapter.Kind
	switch strings.ToUpper(a.Transport) {
	case string(adapter.KindReq):
		transport = adapter.KindReq
	case string(adapter.KindStream):
		transport = adapter.KindStream
	default:
		return agents.Descriptor{}, fail("invalid transport %q (want REQ or STREAM)", a.Transport)
	}

	baseURL, err := resolve(a.EndpointBaseURL)
	if err != nil || baseURL == "" {
		return agents.Descriptor{}, orErr(err, "endpointBaseUrl is required")
	}
	token, err := resolve(a.EndpointToken)
	if err != nil || token == "" {
		return agents.Descriptor{}, orErr(err, "endpointToken is required")
	}

	if len(a.Skills) == 0 {
		return agents.Descriptor{}, fail("at least one skill is required")
	}
	skills := make([]agents.Skill, 0, len(a.Skills))
	for _, s := range a.Skills {
		skillID, err := resolve(s.ID)
		if err != nil {
			return agents.Descriptor{}, err
		}
		skillName, err := resolve(s.Name)
		if err != nil {
			return agents.Descriptor{}, err
		}
		skillDesc, err := resolve(s.Description)
		if err != nil {
			return agents.Descriptor{}, err
		}
		skills = append(skills, agents.Skill{ID: skillID, Name: skillName, Description: skillDesc, Tags: s.Tags})
	}

	return agents.Descriptor{
		ID:              id,
		Name:            name,
		Description:     description,
		Version:         version,
		Transport:       transport,
		EndpointBaseURL: baseURL,
		EndpointToken:   token,
		Skills:          skills,
	}, nil
}

func orErr(err error, fallback string) error {
	if err != nil {
		return err
	}
	return fail("%s", fallback)
}
