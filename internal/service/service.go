package service

import (
	"context"
	"errors"
	"time"

	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
)

type Clock func() time.Time

type options struct {
	clock Clock
}

type Option func(*options)

// WithClock replaces time.Now, mainly for tests that move time forward.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SessionView is a session as of the moment it was read: the countdown is
// evaluated against the server clock.
type SessionView struct {
	model.GameSession
	MultiplierActive bool      `json:"multiplierActive"`
	ServerTime       time.Time `json:"serverTime"`
}

func toSessionView(session *model.GameSession, now time.Time) SessionView {
	view := SessionView{GameSession: *session, ServerTime: now}
	view.TimeRemaining = session.RemainingAt(now)
	if session.MultiplierExpiresAt != nil && now.Before(*session.MultiplierExpiresAt) {
		view.MultiplierActive = true
	} else {
		view.MultiplierExpiresAt = nil
	}
	return view
}

func userNotFound() *apperrors.APIError {
	return apperrors.NotFound("user_not_found", "user not found")
}

func sessionNotFound() *apperrors.APIError {
	return apperrors.NotFound("session_not_found", "session not found")
}

// writeError maps a failed repository write. Version conflicts surface as 409
// so the caller can reload.
func writeError(message string, err error) *apperrors.APIError {
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.Conflict(apperrors.CodeConflict, "record changed concurrently, reload and retry", nil)
	}
	return apperrors.Storage(message, err)
}

func loadUserView(ctx context.Context, users *repository.UserRepository, user *model.User) (*model.UserView, *apperrors.APIError) {
	reports, err := users.ListReports(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Storage("failed to load play reports", err)
	}
	view := model.NewUserView(*user, reports)
	return &view, nil
}
