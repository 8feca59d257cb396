package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session is the per-conversation routing state. The pending fields are
// only meaningful while WaitingForEmail is set.
type Session struct {
	SessionID         string    `json:"session_id"`
	WaitingForEmail   bool      `json:"waiting_for_email"`
	EscalationSummary string    `json:"escalation_summary,omitempty"`
	OriginalQuery     string    `json:"original_query,omitempty"`
	LastInteraction   time.Time `json:"last_interaction"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID:       sessionID,
		LastInteraction: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.LastInteraction = now.UTC()
}

// AwaitEmail parks the session until the customer supplies an address.
func (s *Session) AwaitEmail(summary, originalQuery string) {
	s.WaitingForEmail = true
	s.EscalationSummary = strings.TrimSpace(summary)
	s.OriginalQuery = strings.TrimSpace(originalQuery)
}

func (s *Session) ClearPending() {
	s.WaitingForEmail = false
	s.EscalationSummary = ""
	s.OriginalQuery = ""
}

// IdleFor reports whether the session has been idle longer than idle.
func (s *Session) IdleFor(now time.Time, idle time.Duration) bool {
	if idle <= 0 {
		return false
	}
	return now.Sub(s.LastInteraction) > idle
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if !s.WaitingForEmail && (s.EscalationSummary != "" || s.OriginalQuery != "") {
		return errors.New("pending escalation fields set while not waiting for email")
	}
	return nil
}

func encodeSession(s *Session) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	return string(payload), nil
}

func decodeSession(raw string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &s, nil
}

// resume returns the stored session refreshed to now, or a fresh one when
// nothing usable was stored.
func resume(stored *Session, sessionID string, now time.Time, idle time.Duration) *Session {
	if stored == nil || stored.IdleFor(now, idle) {
		return NewSession(sessionID, now)
	}
	stored.Touch(now)
	return stored
}
