// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package adapter implements the two interchangeable upstream-invocation
// strategies (§4.2 Req Adapter, §4.3 Stream Adapter) plus the envelope
// unwrapping they share (§4.3.1). Grounded on the teacher's client.go
// (HTTP POST with OTel span + slog instrumentation) and client/stream.go
// (session-bound event loop over a persistent connection), adapted from an
// A2A-client-calling-a-server shape to a gateway-calling-the-Cognigy-
// backend shape.
package adapter

import (
	"errors"
	"fmt"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
)

// Kind identifies which upstream transport an agent uses.
type Kind string

const (
	KindReq    Kind = "REQ"
	KindStream Kind = "STREAM"
)

// ErrorKind discriminates the adapter-error taxonomy of spec.md §7.
type ErrorKind string

const (
	ErrTimeout       ErrorKind = "timeout"
	ErrHTTP          ErrorKind = "http"
	ErrNetwork       ErrorKind = "network"
	ErrDisconnect    ErrorKind = "disconnect"
	ErrSocket        ErrorKind = "socket-error"
	ErrSessionTimeout ErrorKind = "session-timeout"
	ErrConnectFailed ErrorKind = "connect-failed"
)

// Error is the adapter-error wrapper the executor translates into
// user-visible A2A terminal events. The original cause is retained for
// logging and is never surfaced to the client.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("adapter-error(%s, status=%d): %v", e.Kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("adapter-error(%s): %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// AsError reports whether err is (or wraps) an *Error.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Callback is invoked synchronously once per raw output as it is produced,
// in arrival order. The Stream Adapter invokes it live; the Req Adapter
// never does (it has no streaming path) but both share the signature so
// the executor can treat them uniformly.
type Callback func(out normalizer.RawOutput, index int)

// Sender is the contract both adapters satisfy, matching §4.2/§4.3's
// shared send signature.
type Sender interface {
	Kind() Kind
	Send(ctx SendContext, cb Callback) ([]normalizer.RawOutput, error)
}

// SendContext carries one invocation's parameters, resolved by the
// executor from the A2A RequestContext.
type SendContext struct {
	Text      string
	SessionID string
	UserID    string
	Data      map[string]any
	HasData   bool
}

// unwrap implements §4.3.1 envelope unwrapping, shared by both adapters.
// One raw entry (rawText, rawData) may expand into multiple
// normalizer.RawOutput entries.
func unwrap(rawText string, hasText bool, rawData map[string]any) []normalizer.RawOutput {
	if def, ok := cognigyDefault(rawData); ok {
		var outs []normalizer.RawOutput
		for _, key := range structuredUnwrapOrder {
			payload, ok := def[key]
			if !ok {
				continue
			}
			outs = append(outs, normalizer.RawOutput{
				Data: map[string]any{key: payload},
			})
		}
		if len(outs) > 0 {
			return outs
		}
	}
	if outs := mediaKeysPresent(rawData); len(outs) > 0 {
		return outs
	}
	if hasText && rawText != "" {
		return []normalizer.RawOutput{{Text: rawText, HasText: true}}
	}
	if isInternalMetadataEnvelope(rawData) {
		return nil
	}
	return []normalizer.RawOutput{{Text: rawText, HasText: hasText, Data: rawData}}
}

var structuredUnwrapOrder = []string{"_quickReplies", "_gallery", "_buttons", "_list", "_adaptiveCard"}

var mediaUnwrapOrder = []string{"_image", "_audio", "_video"}

// mediaKeysPresent returns one normalizer.RawOutput per media key present
// in data, in mediaUnwrapOrder, so a raw entry carrying more than one of
// _image/_audio/_video at the root expands into multiple outputs rather
// than dropping all but the first.
func mediaKeysPresent(data map[string]any) []normalizer.RawOutput {
	var outs []normalizer.RawOutput
	for _, k := range mediaUnwrapOrder {
		payload, ok := data[k]
		if !ok {
			continue
		}
		outs = append(outs, normalizer.RawOutput{Data: map[string]any{k: payload}})
	}
	return outs
}

// cognigyDefault extracts data._cognigy._default as a map, if present.
func cognigyDefault(data map[string]any) (map[string]any, bool) {
	cog, ok := data["_cognigy"].(map[string]any)
	if !ok {
		return nil, false
	}
	def, ok := cog["_default"].(map[string]any)
	return def, ok
}

// isInternalMetadataEnvelope reports whether data is internal metadata per
// the glossary: a data map whose only top-level key is "_cognigy" and
// whose sub-map lacks "_default".
func isInternalMetadataEnvelope(data map[string]any) bool {
	if len(data) == 0 {
		return false
	}
	for k := range data {
		if k != "_cognigy" {
			return false
		}
	}
	cog, ok := data["_cognigy"].(map[string]any)
	if !ok {
		return false
	}
	_, hasDefault := cog["_default"]
	return !hasDefault
}
