// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
)

// fakeSession is an in-memory Session double for exercising §4.3's
// lifecycle without a real upstream connection.
type fakeSession struct {
	events chan SessionEvent
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan SessionEvent, 16)}
}

func (f *fakeSession) Connect(ctx context.Context) error { return nil }
func (f *fakeSession) SendMessage(ctx context.Context, text string, data map[string]any, hasData bool) error {
	return nil
}
func (f *fakeSession) Events() <-chan SessionEvent { return f.events }
func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func TestStreamSendThreePlainTextOutputs(t *testing.T) {
	t.Parallel()

	fs := newFakeSession()
	fs.events <- SessionEvent{Kind: SessionEventOutput, Text: "p1"}
	fs.events <- SessionEvent{Kind: SessionEventOutput, Text: "p2"}
	fs.events <- SessionEvent{Kind: SessionEventOutput, Text: "p3"}
	fs.events <- SessionEvent{Kind: SessionEventFinalPing}

	var seen []string
	s := NewStream("https://upstream", "tok", func(base, token, userID, sessionID string) Session { return fs })
	outs, err := s.Send(SendContext{Text: "go", SessionID: "s1", UserID: "u1"}, func(out normalizer.RawOutput, index int) {
		seen = append(seen, out.Text)
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(outs) != 3 || len(seen) != 3 {
		t.Fatalf("expected 3 outputs delivered to buffer and callback, got outs=%d seen=%d", len(outs), len(seen))
	}
	want := []string{"p1", "p2", "p3"}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], w)
		}
	}
}

func TestStreamSendZeroOutputsFinalPing(t *testing.T) {
	t.Parallel()

	fs := newFakeSession()
	fs.events <- SessionEvent{Kind: SessionEventFinalPing}

	s := NewStream("https://upstream", "tok", func(base, token, userID, sessionID string) Session { return fs })
	outs, err := s.Send(SendContext{Text: "go", SessionID: "s1", UserID: "u1"}, nil)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(outs) != 0 {
		t.Fatalf("expected zero outputs, got %d", len(outs))
	}
	if !fs.closed {
		t.Error("expected session to be closed")
	}
}

func TestStreamSendDisconnectBeforeFinalPing(t *testing.T) {
	t.Parallel()

	fs := newFakeSession()
	fs.events <- SessionEvent{Kind: SessionEventDisconnect}

	s := NewStream("https://upstream", "tok", func(base, token, userID, sessionID string) Session { return fs })
	_, err := s.Send(SendContext{Text: "go", SessionID: "s1", UserID: "u1"}, nil)
	ae, ok := AsError(err)
	if !ok || ae.Kind != ErrDisconnect {
		t.Fatalf("expected disconnect error, got %v", err)
	}
}

func TestStreamSendErrorEvent(t *testing.T) {
	t.Parallel()

	fs := newFakeSession()
	fs.events <- SessionEvent{Kind: SessionEventError, Err: context.DeadlineExceeded}

	s := NewStream("https://upstream", "tok", func(base, token, userID, sessionID string) Session { return fs })
	_, err := s.Send(SendContext{Text: "go", SessionID: "s1", UserID: "u1"}, nil)
	ae, ok := AsError(err)
	if !ok || ae.Kind != ErrSocket {
		t.Fatalf("expected socket error, got %v", err)
	}
}

func TestStreamSendCallbackPanicDoesNotAbortSession(t *testing.T) {
	t.Parallel()

	fs := newFakeSession()
	fs.events <- SessionEvent{Kind: SessionEventOutput, Text: "p1"}
	fs.events <- SessionEvent{Kind: SessionEventFinalPing}

	calls := 0
	s := NewStream("https://upstream", "tok", func(base, token, userID, sessionID string) Session { return fs })
	outs, err := s.Send(SendContext{Text: "go", SessionID: "s1", UserID: "u1"}, func(out normalizer.RawOutput, index int) {
		calls++
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected callback invoked once, got %d", calls)
	}
	if len(outs) != 1 {
		t.Fatalf("expected 1 buffered output, got %d", len(outs))
	}
}

func TestStreamSendTimeout(t *testing.T) {
	t.Parallel()

	fs := newFakeSession() // never emits finalPing
	s := NewStream("https://upstream", "tok", func(base, token, userID, sessionID string) Session { return fs })
	s.Timeout = 30 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(SendContext{Text: "go", SessionID: "s1", UserID: "u1"}, nil)
		done <- err
	}()
	select {
	case err := <-done:
		ae, ok := AsError(err)
		if !ok || ae.Kind != ErrSessionTimeout {
			t.Fatalf("expected session-timeout error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return within test deadline")
	}
}
