package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// Session is the per-visitor state: the latest assessment and where to
// search for hospitals.
type Session struct {
	ID         uuid.UUID
	Assessment *scoring.Assessment
	Location   *scoring.Location
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  time.Time
}

// New starts an empty session.
func New(now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// HasAssessment reports whether the results view should be shown.
func (s *Session) HasAssessment() bool { return s.Assessment != nil }

// SetResult records a scored assessment and its search location.
func (s *Session) SetResult(a *scoring.Assessment, loc *scoring.Location) {
	s.Assessment = a
	s.Location = loc
}

// Reset clears the assessment and location for a new assessment.
func (s *Session) Reset() {
	s.Assessment = nil
	s.Location = nil
}

// Touch extends the session's lifetime.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Expired reports whether the session has lapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// payload is the stored form of the mutable state.
type payload struct {
	Assessment *scoring.Assessment `json:"assessment,omitempty"`
	Location   *scoring.Location   `json:"location,omitempty"`
}

func encodePayload(s *Session) ([]byte, error) {
	b, err := json.Marshal(payload{Assessment: s.Assessment, Location: s.Location})
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return b, nil
}

func decodePayload(s *Session, data []byte) error {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode session %s: %w", s.ID, err)
	}
	s.Assessment = p.Assessment
	s.Location = p.Location
	return nil
}
