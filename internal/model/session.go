package model

import "time"

const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	DefaultPhase          = 1
	TargetScorePerPhase   = 100
	DefaultSessionSeconds = 60
	DefaultHistoryLimit   = 10
)

const (
	CategoryPens  = "pens"
	CategoryCups  = "cups"
	CategoryBooks = "books"
)

type ItemCounts struct {
	Pens  int `json:"pens"`
	Cups  int `json:"cups"`
	Books int `json:"books"`
}

// Increment bumps the counter for category. Unknown categories are ignored.
func (c *ItemCounts) Increment(category string) bool {
	switch category {
	case CategoryPens:
		c.Pens++
	case CategoryCups:
		c.Cups++
	case CategoryBooks:
		c.Books++
	default:
		return false
	}
	return true
}

type GameSession struct {
	ID                  string        `json:"id"`
	UserID              string        `json:"userId"`
	Phase               int           `json:"phase"`
	Score               int           `json:"score"`
	TargetScore         int           `json:"targetScore"`
	TimeRemaining       int           `json:"timeRemaining"`
	Remaining           time.Duration `json:"-"`
	ItemsCollected      ItemCounts    `json:"itemsCollected"`
	Status              string        `json:"status"`
	StartedAt           time.Time     `json:"startedAt"`
	ResumedAt           *time.Time    `json:"-"`
	CompletedAt         *time.Time    `json:"completedAt"`
	MultiplierExpiresAt *time.Time    `json:"multiplierExpiresAt,omitempty"`
	Version             int           `json:"version"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

func TargetScoreForPhase(phase int) int {
	return phase * TargetScorePerPhase
}

func (s *GameSession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Countdown is the time left as of now. Remaining is the value at ResumedAt;
// while active the clock runs from there.
func (s *GameSession) Countdown(now time.Time) time.Duration {
	remaining := s.Remaining
	if s.Status == StatusActive && s.ResumedAt != nil {
		remaining -= now.Sub(*s.ResumedAt)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingAt is Countdown in whole seconds, rounded up so that 0 only shows
// once time is out.
func (s *GameSession) RemainingAt(now time.Time) int {
	return wholeSeconds(s.Countdown(now))
}

// TimedOut reports whether an active session has run out of time.
func (s *GameSession) TimedOut(now time.Time) bool {
	return s.Status == StatusActive && s.Countdown(now) <= 0
}

// Freeze folds elapsed time into Remaining. An active session keeps counting
// from now.
func (s *GameSession) Freeze(now time.Time) {
	s.SetRemaining(s.Countdown(now))
	if s.Status == StatusActive {
		anchor := now
		s.ResumedAt = &anchor
	}
}

// SetRemaining stores the countdown and its whole-second view.
func (s *GameSession) SetRemaining(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.Remaining = d
	s.TimeRemaining = wholeSeconds(d)
}

func wholeSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// OutcomeLabel is the report status a finished session records.
func (s *GameSession) OutcomeLabel() string {
	if s.Status == StatusCompleted {
		return StatusCompleted
	}
	return StatusFailed
}
