// Package session models resumable attack sessions: the hash record under attack, the
// candidate strategy, and the checkpoint of candidates already attempted.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
)

// Status is the lifecycle state of a session.
type Status string

// Session states. Exhausted and Found are terminal.
const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusExhausted Status = "exhausted"
	StatusFound     Status = "found"
)

// ErrInvalidTransition is returned when a status change is not allowed by the session
// state machine.
var ErrInvalidTransition = errors.New("invalid session transition")

//nolint:gochecknoglobals // Static state machine
var transitions = map[Status][]Status{
	StatusRunning: {StatusRunning, StatusPaused, StatusFound, StatusExhausted},
	StatusPaused:  {StatusRunning},
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusExhausted || s == StatusFound
}

// Resumable reports whether a run may pick the session up. Running counts: a persisted
// running session belongs to a process that was interrupted.
func (s Status) Resumable() bool {
	return s == StatusPaused || s == StatusRunning
}

// Session is a single attack against one hash record with one strategy.
type Session struct {
	ID          string         `json:"id"`
	Hash        string         `json:"hash"`
	Fingerprint string         `json:"fingerprint"`
	Strategy    candidate.Spec `json:"strategy"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Checkpoint  uint64         `json:"checkpoint"`
	Status      Status         `json:"status"`
	LastError   string         `json:"last_error,omitempty"`
}

// New creates a paused session at checkpoint zero. The strategy is validated here so a
// bad plan never reaches the runner.
func New(record *hashrecord.Record, spec candidate.Spec) (*Session, error) {
	if record == nil {
		return nil, errors.New("session needs a hash record")
	}

	if _, err := spec.Build(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Session{
		ID:          uuid.NewString(),
		Hash:        record.String(),
		Fingerprint: record.Fingerprint(),
		Strategy:    spec,
		StartedAt:   now,
		UpdatedAt:   now,
		Status:      StatusPaused,
	}, nil
}

// Transition moves the session to status to, enforcing the state machine.
func (s *Session) Transition(to Status) error {
	for _, allowed := range transitions[s.Status] {
		if allowed == to {
			s.Status = to
			s.UpdatedAt = time.Now().UTC()

			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s (session %s)", ErrInvalidTransition, s.Status, to, s.ID)
}

// Record parses the session's hash record.
func (s *Session) Record() (*hashrecord.Record, error) {
	return hashrecord.Parse(s.Hash)
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	c := *s
	c.Strategy = cloneSpec(s.Strategy)

	return &c
}

func cloneSpec(spec candidate.Spec) candidate.Spec {
	out := spec
	if spec.Charsets != nil {
		out.Charsets = append([]string(nil), spec.Charsets...)
	}

	if spec.Increment != nil {
		inc := *spec.Increment
		out.Increment = &inc
	}

	if spec.Parts != nil {
		out.Parts = make([]candidate.Spec, len(spec.Parts))
		for i, p := range spec.Parts {
			out.Parts[i] = cloneSpec(p)
		}
	}

	return out
}
