// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package agent_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frontdesk-dev/frontdesk/internal/agent"
	"github.com/frontdesk-dev/frontdesk/internal/clinic"
	"github.com/frontdesk-dev/frontdesk/internal/live"
	"github.com/frontdesk-dev/frontdesk/internal/store"
)

// memConvStore is an in-memory ConversationStore for loop tests.
type memConvStore struct {
	mu    sync.Mutex
	turns map[string][]store.Turn
}

func newMemConvStore() *memConvStore {
	return &memConvStore{turns: make(map[string][]store.Turn)}
}

func (m *memConvStore) AppendTurn(_ context.Context, key string, role store.TurnRole, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" {
		key = store.AnonymousKey
	}
	m.turns[key] = append(m.turns[key], store.Turn{
		ID:        int64(len(m.turns[key]) + 1),
		Key:       key,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *memConvStore) LoadRecent(_ context.Context, key string, limit int) ([]store.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" {
		key = store.AnonymousKey
	}
	all := m.turns[key]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]store.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (m *memConvStore) Cleanup(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memConvStore) byRole(key string, role store.TurnRole) []store.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Turn
	for _, t := range m.turns[key] {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

// memAuditStore collects audit entries.
type memAuditStore struct {
	mu      sync.Mutex
	entries []store.AuditEntry
}

func (m *memAuditStore) Append(_ context.Context, entry *store.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAuditStore) Query(_ context.Context, _ store.AuditFilter) ([]*store.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.AuditEntry, 0, len(m.entries))
	for i := range m.entries {
		entry := m.entries[i]
		out = append(out, &entry)
	}
	return out, nil
}

// turnScript describes one SendTurn exchange on a scripted backend.
type turnScript struct {
	err    error
	events []live.Event
}

// scriptedBackend plays back pre-recorded turns in order. Turns past the end
// of the script yield an immediate clean end, which the loop reads as
// silence.
type scriptedBackend struct {
	mu      sync.Mutex
	scripts []turnScript
	sent    []string
	closed  bool
}

func (b *scriptedBackend) SendTurn(_ context.Context, text string) (<-chan live.Event, error) {
	b.mu.Lock()
	idx := len(b.sent)
	b.sent = append(b.sent, text)
	var script turnScript
	if idx < len(b.scripts) {
		script = b.scripts[idx]
	} else {
		script = turnScript{events: []live.Event{{Type: live.EventEnd}}}
	}
	b.mu.Unlock()

	if script.err != nil {
		return nil, script.err
	}
	ch := make(chan live.Event, len(script.events))
	for _, ev := range script.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (b *scriptedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *scriptedBackend) sendCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

// dialQueue hands out backends in order, one per dial.
type dialQueue struct {
	mu       sync.Mutex
	backends []*scriptedBackend
	dials    int
	contexts []map[string]any
}

func (q *dialQueue) dial(_ context.Context, sessionContext map[string]any) (agent.LiveSession, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.contexts = append(q.contexts, sessionContext)
	if q.dials >= len(q.backends) {
		q.dials++
		return nil, context.DeadlineExceeded
	}
	b := q.backends[q.dials]
	q.dials++
	return b, nil
}

// loopFixture wires a Loop over scripted backends and stub tools.
type loopFixture struct {
	loop     *agent.Loop
	sessions *agent.SessionManager
	conv     *memConvStore
	audit    *memAuditStore
	dials    *dialQueue
	registry *agent.Registry

	mu      sync.Mutex
	invoked []string
}

func newLoopFixture(t *testing.T, maxSteps int, backends ...*scriptedBackend) *loopFixture {
	t.Helper()

	f := &loopFixture{
		sessions: agent.NewSessionManager(),
		conv:     newMemConvStore(),
		audit:    &memAuditStore{},
		dials:    &dialQueue{backends: backends},
		registry: agent.NewRegistry(),
	}

	dispatcher, err := agent.NewDispatcher(agent.DispatcherConfig{
		Registry: f.registry,
		Audit:    f.audit,
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	f.loop, err = agent.NewLoop(agent.LoopConfig{
		Sessions:      f.sessions,
		Dispatcher:    dispatcher,
		Conversations: f.conv,
		Audit:         f.audit,
		Dial:          f.dials.dial,
		MaxSteps:      maxSteps,
	})
	require.NoError(t, err)
	return f
}

// register adds a stub tool that records invocations and returns a fixed
// result.
func (f *loopFixture) register(t *testing.T, name string, required []string, result clinic.Result) {
	t.Helper()
	properties := map[string]any{}
	for _, r := range required {
		properties[r] = map[string]any{"type": "string"}
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if required != nil {
		// A nil slice marshals to JSON null, which is not a valid value for
		// "required" and fails schema compilation.
		schema["required"] = required
	}
	err := f.registry.Register(agent.Tool{
		Name:   name,
		Schema: schema,
		Handler: func(_ context.Context, _ map[string]any) clinic.Result {
			f.mu.Lock()
			f.invoked = append(f.invoked, name)
			f.mu.Unlock()
			return result
		},
	})
	require.NoError(t, err)
}

func (f *loopFixture) invocations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.invoked))
	copy(out, f.invoked)
	return out
}

// drain collects the full fragment sequence of a turn.
func drain(t *testing.T, ch <-chan agent.Fragment) []agent.Fragment {
	t.Helper()
	var out []agent.Fragment
	deadline := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-deadline:
			t.Fatal("turn did not terminate")
		}
	}
}
