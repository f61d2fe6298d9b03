// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package connpool implements the §4.4 Connection Pool: a long-lived,
// per-agent upstream connection with a formal state machine, jittered
// exponential-backoff reconnect, idle eviction and an auth-failure fast
// path. It does not carry per-invocation traffic — that is the Stream
// Adapter's per-call Session — its value is connection liveness tracking
// and fast failure detection (spec.md §4.4, §9).
//
// Grounded on the teacher's pattern of per-entry mutable state guarded by
// its own lock (client.go's A2AClient fields) generalized from "one client
// struct" to "one entry per agent id in a concurrent map", and on
// client/stream.go's disconnect/error handling for the reconnect trigger.
package connpool

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// State is one node of the §4.4 state machine.
type State string

const (
	StateConnecting   State = "CONNECTING"
	StateIdle         State = "IDLE"
	StateActive       State = "ACTIVE"
	StateReconnecting State = "RECONNECTING"
	StateDead         State = "DEAD"
)

const (
	idleTimeout      = 5 * time.Minute
	maxAttempts       = 6
	baseBackoff       = 1 * time.Second
	maxBackoff        = 30 * time.Second
	jitterFraction    = 0.2
)

// Client is the long-lived handle the pool owns for one agent. The
// concrete Cognigy WebSocket client lives outside this package; the pool
// only needs to connect and close it, and be told when it disconnects.
type Client interface {
	Connect() error
	Close() error
}

// Dialer constructs a fresh Client for an agent. Supplied by the caller so
// the pool has no direct dependency on the transport.
type Dialer func(agentID string) Client

// isAuthError reports whether err's message indicates the upstream
// rejected credentials, per §4.4's case-insensitive substring match.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"401", "403", "unauthorized", "forbidden"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// Entry is one Pool Entry (§3): the mutable state the pool tracks for a
// single agent's connection, serialized by its own lock so no cross-entry
// locking is ever needed.
type Entry struct {
	mu               sync.Mutex
	agentID          string
	client           Client
	state            State
	activeSessions   int
	lastActivity     time.Time
	reconnectAttempt int
	idleTimer        *time.Timer
	deadCh           chan struct{}
}

// State returns the entry's current state.
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActiveSessions returns the current session counter.
func (e *Entry) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeSessions
}

// Dead returns a channel closed when the entry transitions to DEAD.
func (e *Entry) Dead() <-chan struct{} { return e.deadCh }

// Pool owns every Entry; no other component holds a long-lived reference
// to the embedded Client handle across suspension points (§3 Ownership).
type Pool struct {
	mu      sync.Mutex
	entries map[string]*Entry
	dial    Dialer
	onDead  func(agentID string)
	logger  *slog.Logger

	// backoff/idle overrides for deterministic tests.
	backoffFor func(attempt int) time.Duration
	idleAfter  time.Duration
}

// New returns an empty Pool. dial constructs a fresh Client on every
// connect attempt (initial and reconnect).
func New(dial Dialer) *Pool {
	return &Pool{
		entries:    make(map[string]*Entry),
		dial:       dial,
		logger:     slog.Default(),
		backoffFor: defaultBackoff,
		idleAfter:  idleTimeout,
	}
}

// OnDead registers a callback invoked when any entry transitions to DEAD,
// matching §4.4's "pool-dead notification".
func (p *Pool) OnDead(fn func(agentID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDead = fn
}

func defaultBackoff(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<uint(attempt-1))
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := 1 + (rand.Float64()*2-1)*jitterFraction
	return time.Duration(float64(d) * jitter)
}

// GetOrCreate returns the pool entry for agentID, connecting it if this is
// the first call for that agent. A get-or-create against a DEAD entry, or
// one whose initial connect fails, is an immediate error.
func (p *Pool) GetOrCreate(agentID string) (*Entry, error) {
	p.mu.Lock()
	if e, ok := p.entries[agentID]; ok {
		p.mu.Unlock()
		if e.State() == StateDead {
			return nil, fmt.Errorf("connpool: entry for %q is dead", agentID)
		}
		return e, nil
	}
	e := &Entry{agentID: agentID, state: StateConnecting, deadCh: make(chan struct{})}
	p.entries[agentID] = e
	p.mu.Unlock()

	client := p.dial(agentID)
	if err := client.Connect(); err != nil {
		p.mu.Lock()
		delete(p.entries, agentID)
		p.mu.Unlock()
		if isAuthError(err) {
			e.mu.Lock()
			e.state = StateDead
			e.mu.Unlock()
			close(e.deadCh)
			p.notifyDead(agentID)
		}
		return nil, fmt.Errorf("connpool: initial connect for %q: %w", agentID, err)
	}

	e.mu.Lock()
	e.client = client
	e.state = StateIdle
	e.lastActivity = time.Now()
	e.mu.Unlock()
	p.armIdleTimer(e)
	return e, nil
}

// Remove evicts agentID's entry unconditionally, closing its client.
func (p *Pool) Remove(agentID string) {
	p.mu.Lock()
	e, ok := p.entries[agentID]
	if ok {
		delete(p.entries, agentID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	client := e.client
	e.mu.Unlock()
	if client != nil {
		client.Close()
	}
}

// Get returns the entry for agentID without creating one.
func (p *Pool) Get(agentID string) (*Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[agentID]
	return e, ok
}

// Len reports how many entries the pool currently holds.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// SessionStarted increments agentID's active-session counter and cancels
// any pending idle timer, transitioning IDLE -> ACTIVE.
func (p *Pool) SessionStarted(agentID string) {
	e, ok := p.Get(agentID)
	if !ok {
		return
	}
	e.mu.Lock()
	e.activeSessions++
	e.lastActivity = time.Now()
	if e.state == StateIdle {
		e.state = StateActive
	}
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.mu.Unlock()
}

// SessionEnded decrements agentID's active-session counter (never below
// zero). When the counter reaches zero in ACTIVE, the entry transitions
// to IDLE and the idle timer is (re)armed.
func (p *Pool) SessionEnded(agentID string) {
	e, ok := p.Get(agentID)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.activeSessions > 0 {
		e.activeSessions--
	}
	e.lastActivity = time.Now()
	becameIdle := e.activeSessions == 0 && e.state == StateActive
	if becameIdle {
		e.state = StateIdle
	}
	e.mu.Unlock()
	if becameIdle {
		p.armIdleTimer(e)
	}
}

func (p *Pool) armIdleTimer(e *Entry) {
	p.mu.Lock()
	idleAfter := p.idleAfter
	p.mu.Unlock()

	e.mu.Lock()
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(idleAfter, func() { p.evictIdle(e.agentID) })
	e.mu.Unlock()
}

func (p *Pool) evictIdle(agentID string) {
	e, ok := p.Get(agentID)
	if !ok {
		return
	}
	e.mu.Lock()
	stillIdle := e.state == StateIdle && e.activeSessions == 0
	e.mu.Unlock()
	if stillIdle {
		p.Remove(agentID)
	}
}

// NotifyDisconnect tells the pool that agentID's connection dropped or
// errored outside of a session-boundary operation. A non-auth error moves
// the entry to RECONNECTING and schedules a retry; an auth-flagged error
// moves it directly to DEAD.
func (p *Pool) NotifyDisconnect(agentID string, cause error) {
	e, ok := p.Get(agentID)
	if !ok {
		return
	}
	if isAuthError(cause) {
		p.kill(e)
		return
	}
	e.mu.Lock()
	if e.state == StateDead {
		e.mu.Unlock()
		return
	}
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.state = StateReconnecting
	attempt := e.reconnectAttempt + 1
	e.reconnectAttempt = attempt
	e.mu.Unlock()

	if attempt > maxAttempts {
		p.kill(e)
		return
	}

	p.mu.Lock()
	delay := p.backoffFor(attempt)
	p.mu.Unlock()
	time.AfterFunc(delay, func() { p.attemptReconnect(e) })
}

func (p *Pool) attemptReconnect(e *Entry) {
	e.mu.Lock()
	if e.state == StateDead {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	client := p.dial(e.agentID)
	err := client.Connect()

	e.mu.Lock()
	if e.state == StateDead {
		e.mu.Unlock()
		client.Close()
		return
	}
	if err != nil {
		attempt := e.reconnectAttempt
		e.mu.Unlock()
		if isAuthError(err) {
			p.kill(e)
			return
		}
		if attempt >= maxAttempts {
			p.kill(e)
			return
		}
		p.NotifyDisconnect(e.agentID, err)
		return
	}

	e.client = client
	e.reconnectAttempt = 0
	if e.activeSessions > 0 {
		e.state = StateActive
	} else {
		e.state = StateIdle
	}
	e.mu.Unlock()
	if e.State() == StateIdle {
		p.armIdleTimer(e)
	}
}

func (p *Pool) kill(e *Entry) {
	e.mu.Lock()
	if e.state == StateDead {
		e.mu.Unlock()
		return
	}
	e.state = StateDead
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	client := e.client
	e.mu.Unlock()
	close(e.deadCh)
	if client != nil {
		client.Close()
	}

	p.mu.Lock()
	delete(p.entries, e.agentID)
	p.mu.Unlock()

	p.notifyDead(e.agentID)
}

func (p *Pool) notifyDead(agentID string) {
	p.mu.Lock()
	cb := p.onDead
	p.mu.Unlock()
	if cb != nil {
		cb(agentID)
	}
}

// Reset removes every entry, closing their clients. Test-only hook per the
// §9 design note that pool implementations should expose one, since the
// pool is otherwise singleton-scoped for the life of the process.
func (p *Pool) Reset() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	for _, id := range ids {
		p.Remove(id)
	}
}
