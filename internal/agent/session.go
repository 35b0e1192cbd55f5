// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package agent

import (
	"sync"
	"unicode"

	"github.com/frontdesk-dev/frontdesk/internal/clinic"
	"github.com/frontdesk-dev/frontdesk/internal/store"
)

// Language is the conversation language, inferred from the first user turn
// and sticky once set.
type Language string

const (
	LanguageUnknown Language = ""
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// Identity is what the receptionist has learned about the caller.
type Identity struct {
	PatientID int64
	FullName  string
	Phone     string
}

// Session is the per-conversation mutable state. It is owned by exactly one
// turn-loop invocation at a time; mu serializes turns on the same key.
type Session struct {
	Key      string
	Identity Identity
	Language Language

	// LastResult is the most recent tool result across turns. Termination
	// checks use only results produced within the current turn.
	LastResult *clinic.Result
	StepCount  int

	mu   sync.Mutex
	live LiveSession
}

// ObserveUserText infers the language from the first user turn. Later turns
// never flip it.
func (s *Session) ObserveUserText(text string) {
	if s.Language == LanguageUnknown {
		s.Language = DetectLanguage(text)
	}
}

// FoldResult records the tool outcome and, for a successful identity
// operation, merges the caller's identity into the session.
func (s *Session) FoldResult(toolName string, args map[string]any, result clinic.Result) {
	s.LastResult = &result
	if !result.OK {
		return
	}
	switch toolName {
	case "ensure_patient", "verify_patient":
		if id := parseID(result); id != 0 {
			s.Identity.PatientID = id
		}
		if name := argString(args, "full_name"); name != "" {
			s.Identity.FullName = name
		}
		if phone := argString(args, "phone"); phone != "" {
			s.Identity.Phone = phone
		}
	}
}

// Context builds the session-context payload the setup frame carries so the
// backend need not re-ask for what is already known.
func (s *Session) Context() map[string]any {
	ctx := map[string]any{}
	if s.Identity.PatientID != 0 {
		ctx["patient_id"] = s.Identity.PatientID
	}
	if s.Identity.FullName != "" {
		ctx["full_name"] = s.Identity.FullName
	}
	if s.Identity.Phone != "" {
		ctx["user_phone"] = s.Identity.Phone
	}
	if s.Language != LanguageUnknown {
		ctx["language"] = string(s.Language)
	}
	if len(ctx) == 0 {
		return nil
	}
	return ctx
}

func parseID(result clinic.Result) int64 {
	data, ok := result.Data.(map[string]any)
	if !ok {
		return 0
	}
	switch v := data["patient_id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// DetectLanguage classifies text as Arabic when it contains any Arabic-block
// rune, English otherwise.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) {
			return LanguageArabic
		}
	}
	return LanguageEnglish
}

// SessionManager hands out one Session per conversation key. Sessions are
// memory-resident; the transcript itself lives in the conversation store and
// survives restarts.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Acquire returns the session for key, creating one on first contact. An
// empty key maps to the anonymous conversation.
func (m *SessionManager) Acquire(key string) *Session {
	if key == "" {
		key = store.AnonymousKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := &Session{Key: key}
	m.sessions[key] = s
	return s
}

// Release closes the session's live connection, if any, and forgets the
// session. The next Acquire for the key starts fresh from the persisted
// transcript.
func (m *SessionManager) Release(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok && s.live != nil {
		_ = s.live.Close()
	}
}
