// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk-dev/frontdesk/internal/clinic"
	"github.com/frontdesk-dev/frontdesk/internal/live"
	"github.com/frontdesk-dev/frontdesk/internal/store"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

// defaultMaxSteps bounds the think/dispatch iterations of a single turn.
const defaultMaxSteps = 10

// defaultHistoryWindow is the most-recent-N transcript window fed to the
// backend, bounding request size.
const defaultHistoryWindow = 12

// FragmentKind classifies an output fragment.
type FragmentKind string

const (
	// FragmentText carries streamed model text.
	FragmentText FragmentKind = "text"
	// FragmentNotice carries a short diagnostic the user can act on.
	FragmentNotice FragmentKind = "notice"
	// FragmentIncomplete marks a turn terminated by the step budget. Callers
	// can distinguish it from a successful end.
	FragmentIncomplete FragmentKind = "incomplete"
	// FragmentDone marks a cleanly terminated turn.
	FragmentDone FragmentKind = "done"
)

// Fragment is one element of the lazy output sequence a turn produces.
type Fragment struct {
	Kind FragmentKind `json:"kind"`
	Text string       `json:"text,omitempty"`
}

// LiveSession is the streaming backend connection the loop drives. Satisfied
// by live.Session.
type LiveSession interface {
	SendTurn(ctx context.Context, text string) (<-chan live.Event, error)
	Close() error
}

var _ LiveSession = (*live.Session)(nil)

// LiveDialer opens a backend connection seeded with the session context of
// already-known identity and locale.
type LiveDialer func(ctx context.Context, sessionContext map[string]any) (LiveSession, error)

// LoopConfig holds dependencies for the Loop.
type LoopConfig struct {
	Sessions      *SessionManager
	Dispatcher    *Dispatcher
	Conversations store.ConversationStore
	Audit         store.AuditStore
	Dial          LiveDialer
	MaxSteps      int
	HistoryWindow int
	Logger        *slog.Logger
}

// Loop is the turn-loop controller: it turns one user message into a bounded
// sequence of output fragments, dispatching tool calls along the way.
type Loop struct {
	sessions      *SessionManager
	dispatcher    *Dispatcher
	conversations store.ConversationStore
	audit         store.AuditStore
	dial          LiveDialer
	maxSteps      int
	historyWindow int
	log           *slog.Logger
}

// NewLoop creates a Loop with the given dependencies.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Sessions == nil || cfg.Dispatcher == nil || cfg.Conversations == nil || cfg.Dial == nil {
		return nil, fderr.New(fderr.CodeAgentTurnInvalidInput,
			"Sessions, Dispatcher, Conversations, and Dial are required")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		sessions:      cfg.Sessions,
		dispatcher:    cfg.Dispatcher,
		conversations: cfg.Conversations,
		audit:         cfg.Audit,
		dial:          cfg.Dial,
		maxSteps:      cfg.MaxSteps,
		historyWindow: cfg.HistoryWindow,
		log:           cfg.Logger,
	}, nil
}

// RunTurn consumes one user message and returns the lazy fragment sequence
// for the turn. The channel is closed on termination; the caller cancels ctx
// to abandon consumption early without leaking the turn goroutine.
func (l *Loop) RunTurn(ctx context.Context, conversationKey, userText string) (<-chan Fragment, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, fderr.New(fderr.CodeAgentTurnInvalidInput, "user text is required")
	}

	sess := l.sessions.Acquire(conversationKey)
	out := make(chan Fragment)
	go l.run(ctx, sess, userText, out)
	return out, nil
}

// run drives one turn to termination. It holds the session lock for the
// whole turn so turns on the same conversation never interleave, and it
// serializes its own transcript writes by doing them inline.
func (l *Loop) run(ctx context.Context, sess *Session, userText string, out chan<- Fragment) {
	defer close(out)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.ObserveUserText(userText)
	l.appendTurn(ctx, sess.Key, store.TurnRoleUser, userText)

	// Termination decisions look only at results produced within this turn.
	var lastResult *clinic.Result
	outcome := "silence"

steps:
	for step := 1; step <= l.maxSteps; step++ {
		sess.StepCount = step

		ls, err := l.liveFor(ctx, sess)
		if err != nil {
			l.log.Warn("backend dial failed", slog.String("conversation", sess.Key), slog.Any("error", err))
			if !l.emitNotice(ctx, sess, out, transportNotice(sess.Language)) {
				return
			}
			continue
		}

		events, err := ls.SendTurn(ctx, l.composeInput(ctx, sess, userText))
		if err != nil {
			l.dropLive(sess)
			l.log.Warn("send failed", slog.String("conversation", sess.Key), slog.Any("error", err))
			if !l.emitNotice(ctx, sess, out, transportNotice(sess.Language)) {
				return
			}
			continue
		}

		var buf strings.Builder
		var call *live.FunctionCall
		streamFailed := false
		for ev := range events {
			switch ev.Type {
			case live.EventText:
				buf.WriteString(ev.Text)
				if !l.emit(ctx, out, Fragment{Kind: FragmentText, Text: ev.Text}) {
					return
				}
			case live.EventFunctionCall:
				if call == nil {
					call = ev.Call
				}
			case live.EventError:
				streamFailed = true
				l.log.Warn("stream error",
					slog.String("conversation", sess.Key),
					slog.String("error", ev.Err))
			case live.EventEnd:
			}
		}

		if buf.Len() > 0 {
			l.appendTurn(ctx, sess.Key, store.TurnRoleAgent, buf.String())
		}

		if streamFailed {
			// Connection state is suspect after a stream error; redial next step.
			l.dropLive(sess)
			if !l.emitNotice(ctx, sess, out, transportNotice(sess.Language)) {
				return
			}
			continue
		}

		if call != nil {
			result, err := l.dispatcher.Dispatch(ctx, *call, sess.Key)
			if err != nil {
				// Never dispatched: unknown tool or missing arguments. Surface
				// the gap and let the model recover on the next step.
				l.appendTurn(ctx, sess.Key, store.TurnRoleToolNotice,
					fmt.Sprintf("[tool %s] not executed: %s", call.Name, err.Error()))
				if !l.emitNotice(ctx, sess, out, gapNotice(sess.Language)) {
					return
				}
				continue
			}

			lastResult = &result
			sess.FoldResult(call.Name, call.Args, result)
			l.appendTurn(ctx, sess.Key, store.TurnRoleToolNotice,
				fmt.Sprintf("[tool %s] %s", call.Name, result.Encode()))

			if confirmed(result) {
				outcome = "confirmed"
				break steps
			}
			continue
		}

		if lastResult != nil && confirmed(*lastResult) {
			outcome = "confirmed"
			break steps
		}
		if buf.Len() == 0 {
			// Neither text nor a tool call: backend silence.
			l.log.Info("backend silent, ending turn",
				slog.String("conversation", sess.Key),
				slog.Int("step", step))
			break steps
		}
		outcome = "responded"
	}

	if sess.StepCount >= l.maxSteps && outcome != "confirmed" {
		outcome = "incomplete"
		text := incompleteNotice(sess.Language)
		l.appendTurn(ctx, sess.Key, store.TurnRoleToolNotice, text)
		if !l.emit(ctx, out, Fragment{Kind: FragmentIncomplete, Text: text}) {
			return
		}
	} else {
		if !l.emit(ctx, out, Fragment{Kind: FragmentDone}) {
			return
		}
	}

	l.auditTurn(ctx, sess, outcome)
}

// liveFor returns the session's backend connection, dialing on first use.
func (l *Loop) liveFor(ctx context.Context, sess *Session) (LiveSession, error) {
	if sess.live != nil {
		return sess.live, nil
	}
	ls, err := l.dial(ctx, sess.Context())
	if err != nil {
		return nil, err
	}
	sess.live = ls
	return ls, nil
}

func (l *Loop) dropLive(sess *Session) {
	if sess.live != nil {
		_ = sess.live.Close()
		sess.live = nil
	}
}

// composeInput renders the transcript window as the model input. When the
// store is unavailable the current user text alone is sent; the turn degrades
// rather than aborts.
func (l *Loop) composeInput(ctx context.Context, sess *Session, userText string) string {
	turns, err := l.conversations.LoadRecent(ctx, sess.Key, l.historyWindow)
	if err != nil || len(turns) == 0 {
		if err != nil {
			l.log.Warn("history load failed", slog.String("conversation", sess.Key), slog.Any("error", err))
		}
		return string(store.TurnRoleUser) + ": " + userText
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Message)
	}
	return b.String()
}

// appendTurn persists one transcript entry. Durability is fire-and-forget:
// a failed write is logged, never fatal to the turn.
func (l *Loop) appendTurn(ctx context.Context, key string, role store.TurnRole, message string) {
	if err := l.conversations.AppendTurn(ctx, key, role, message); err != nil {
		l.log.Warn("transcript append failed",
			slog.String("conversation", key),
			slog.String("role", string(role)),
			slog.Any("error", err))
	}
}

func (l *Loop) emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		// Consumer abandoned the turn; treat as a clean end.
		return false
	}
}

// emitNotice yields a diagnostic fragment and records it in the transcript.
func (l *Loop) emitNotice(ctx context.Context, sess *Session, out chan<- Fragment, text string) bool {
	l.appendTurn(ctx, sess.Key, store.TurnRoleToolNotice, text)
	return l.emit(ctx, out, Fragment{Kind: FragmentNotice, Text: text})
}

func (l *Loop) auditTurn(ctx context.Context, sess *Session, outcome string) {
	if l.audit == nil {
		return
	}
	entry := &store.AuditEntry{
		ID:        uuid.New().String(),
		Event:     "agent_turn",
		Detail:    fmt.Sprintf("%s after %d steps", outcome, sess.StepCount),
		ActionBy:  sess.Key,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.audit.Append(ctx, entry); err != nil {
		l.log.Warn("audit append failed", slog.String("conversation", sess.Key), slog.Any("error", err))
	}
}

// confirmed reports whether the result carries the confirmation token that
// alone justifies reporting success: a verification code for bookings, an
// appointment id for cancels and reschedules.
func confirmed(result clinic.Result) bool {
	if !result.OK {
		return false
	}
	return result.DataField("verification_code") != "" || result.DataField("appointment_id") != ""
}

func transportNotice(lang Language) string {
	if lang == LanguageArabic {
		return "صار خلل مؤقت في الاتصال، ممكن تعيد المحاولة؟"
	}
	return "There was a temporary connection problem. Please try again."
}

func gapNotice(lang Language) string {
	if lang == LanguageArabic {
		return "أحتاج بعض المعلومات الإضافية قبل ما أقدر أكمل."
	}
	return "I need a bit more information before I can do that."
}

func incompleteNotice(lang Language) string {
	if lang == LanguageArabic {
		return "ما قدرت أكمل الطلب بالكامل، خلينا نكمل برسالة جديدة."
	}
	return "I couldn't fully complete that request. Let's continue in a new message."
}
