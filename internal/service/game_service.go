package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/game"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
)

const maxHistoryLimit = 100

type GameService struct {
	store  *repository.Store
	engine *game.Engine
	clock  Clock
}

type ScoreInput struct {
	Points      int
	ItemType    string
	BaseVersion int
}

type CollectResult struct {
	Session SessionView `json:"session"`
	Award   game.Award  `json:"award"`
}

type CompleteResult struct {
	Session SessionView     `json:"session"`
	User    *model.UserView `json:"user"`
}

type UseItemResult struct {
	Session    SessionView         `json:"session"`
	Activation game.Activation     `json:"activation"`
	Unit       model.InventoryItem `json:"unit"`
}

func NewGameService(store *repository.Store, engine *game.Engine, opts ...Option) *GameService {
	o := buildOptions(opts)
	if engine == nil {
		engine = game.NewEngine(nil)
	}
	return &GameService{store: store, engine: engine, clock: o.clock}
}

// Start returns the user's running session if there is one, otherwise opens a
// new round at phase.
func (s *GameService) Start(ctx context.Context, userID string, phase int) (*SessionView, *apperrors.APIError) {
	if phase < 1 {
		return nil, apperrors.Validation("phase must be a positive integer")
	}

	now := s.clock()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	if _, apiErr := getUser(ctx, tx.Users, userID); apiErr != nil {
		return nil, apiErr
	}

	active, err := tx.Sessions.FindActiveByUser(ctx, userID)
	switch {
	case err == nil:
		expired, apiErr := s.finalizeIfExpired(ctx, tx, active, now)
		if apiErr != nil {
			return nil, apiErr
		}
		if !expired {
			view := toSessionView(active, now)
			return &view, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Storage("failed to look up active session", err)
	}

	session := model.GameSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Phase:       phase,
		TargetScore: model.TargetScoreForPhase(phase),
		Status:      model.StatusActive,
		StartedAt:   now,
		ResumedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	session.SetRemaining(model.DefaultSessionSeconds * time.Second)
	if err := tx.Sessions.Insert(ctx, &session); err != nil {
		return nil, apperrors.Storage("failed to create session", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	view := toSessionView(&session, now)
	return &view, nil
}

// ApplyScore adds client-priced points. Effects are not consulted here.
func (s *GameService) ApplyScore(ctx context.Context, sessionID string, input ScoreInput) (*SessionView, *apperrors.APIError) {
	if input.Points <= 0 {
		return nil, apperrors.Validation("points must be positive")
	}

	return s.mutateActive(ctx, sessionID, input.BaseVersion, func(tx *repository.Tx, session *model.GameSession, now time.Time) *apperrors.APIError {
		addPoints(session, input.Points, input.ItemType)
		return nil
	})
}

// Collect prices a collect event with the scoring engine and the session's
// persisted effects, then applies it like ApplyScore.
func (s *GameService) Collect(ctx context.Context, sessionID, itemType string, baseVersion int) (*CollectResult, *apperrors.APIError) {
	var award game.Award
	view, apiErr := s.mutateActive(ctx, sessionID, baseVersion, func(tx *repository.Tx, session *model.GameSession, now time.Time) *apperrors.APIError {
		award = s.engine.Score(itemType, game.Effects{MultiplierExpiresAt: session.MultiplierExpiresAt}, now)
		addPoints(session, award.Points, itemType)
		return nil
	})
	if apiErr != nil {
		return nil, apiErr
	}
	return &CollectResult{Session: *view, Award: award}, nil
}

// UseItem consumes one owned unit of itemID and applies its effect to the
// session. Nothing is consumed when the effect cannot apply.
func (s *GameService) UseItem(ctx context.Context, sessionID, itemID string) (*UseItemResult, *apperrors.APIError) {
	if _, ok := game.FindItem(itemID); !ok {
		return nil, apperrors.Validation("unknown item")
	}

	var (
		activation game.Activation
		unit       *model.InventoryItem
	)
	view, apiErr := s.mutateActive(ctx, sessionID, 0, func(tx *repository.Tx, session *model.GameSession, now time.Time) *apperrors.APIError {
		var err error
		activation, err = game.Activate(itemID, game.Effects{MultiplierExpiresAt: session.MultiplierExpiresAt}, now)
		if errors.Is(err, game.ErrEffectActive) {
			return apperrors.InvalidState("score multiplier is already active")
		}
		if errors.Is(err, game.ErrEffectUnavailable) {
			return apperrors.Validation("this item has no gameplay effect yet")
		}

		var apiErr *apperrors.APIError
		if unit, apiErr = claimUnit(ctx, tx, session, itemID, now); apiErr != nil {
			return apiErr
		}

		session.SetRemaining(session.Remaining + time.Duration(activation.AddedSeconds)*time.Second)
		if activation.MultiplierExpiresAt != nil {
			session.MultiplierExpiresAt = activation.MultiplierExpiresAt
		}

		return nil
	})
	if apiErr != nil {
		return nil, apiErr
	}
	return &UseItemResult{Session: *view, Activation: activation, Unit: *unit}, nil
}

func (s *GameService) Pause(ctx context.Context, sessionID string, baseVersion int) (*SessionView, *apperrors.APIError) {
	return s.setRunning(ctx, sessionID, baseVersion, false)
}

func (s *GameService) Resume(ctx context.Context, sessionID string, baseVersion int) (*SessionView, *apperrors.APIError) {
	return s.setRunning(ctx, sessionID, baseVersion, true)
}

// Complete finalizes the session and credits its owner. Completing a session
// that is already terminal changes nothing and reports the stored outcome.
func (s *GameService) Complete(ctx context.Context, sessionID string, baseVersion int) (*CompleteResult, *apperrors.APIError) {
	now := s.clock()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	session, apiErr := getSession(ctx, tx.Sessions, sessionID)
	if apiErr != nil {
		return nil, apiErr
	}

	var user *model.User
	if session.Terminal() {
		if user, apiErr = getUser(ctx, tx.Users, session.UserID); apiErr != nil {
			return nil, apiErr
		}
	} else {
		if apiErr := ensureVersion(baseVersion, session, now); apiErr != nil {
			return nil, apiErr
		}
		if user, apiErr = s.completeTx(ctx, tx, session, now); apiErr != nil {
			return nil, apiErr
		}
	}

	userView, apiErr := loadUserView(ctx, tx.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	return &CompleteResult{Session: toSessionView(session, now), User: userView}, nil
}

func (s *GameService) GetActive(ctx context.Context, userID string) (*SessionView, *apperrors.APIError) {
	session, err := s.store.Sessions.FindActiveByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("no_active_session", "no active session found")
	}
	if err != nil {
		return nil, apperrors.Storage("failed to look up active session", err)
	}
	view := toSessionView(session, s.clock())
	return &view, nil
}

func (s *GameService) GetHistory(ctx context.Context, userID string, limit int) ([]SessionView, *apperrors.APIError) {
	if limit <= 0 {
		limit = model.DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	sessions, err := s.store.Sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Storage("failed to get history", err)
	}

	now := s.clock()
	views := make([]SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, toSessionView(&sessions[i], now))
	}
	return views, nil
}

// ExpireStale completes every active session whose countdown has run out and
// returns how many were finalized.
func (s *GameService) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock()
	active, err := s.store.Sessions.ListByStatus(ctx, model.StatusActive)
	if err != nil {
		return 0, err
	}

	expired := 0
	var failures []error
	for _, candidate := range active {
		if !candidate.TimedOut(now) {
			continue
		}
		done, err := s.expireOne(ctx, candidate.ID, now)
		if err != nil {
			failures = append(failures, fmt.Errorf("expire session %s: %w", candidate.ID, err))
			continue
		}
		if done {
			expired++
		}
	}
	return expired, errors.Join(failures...)
}

func (s *GameService) expireOne(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	session, err := tx.Sessions.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	expired, apiErr := s.finalizeIfExpired(ctx, tx, session, now)
	if apiErr != nil {
		return false, apiErr
	}
	if !expired {
		return false, nil
	}
	return true, tx.Commit()
}

// mutateActive runs fn against an active, unexpired session inside one
// transaction and persists the result. A session found out of time is
// finalized and committed before the call is rejected.
func (s *GameService) mutateActive(
	ctx context.Context,
	sessionID string,
	baseVersion int,
	fn func(tx *repository.Tx, session *model.GameSession, now time.Time) *apperrors.APIError,
) (*SessionView, *apperrors.APIError) {
	now := s.clock()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	session, apiErr := getSession(ctx, tx.Sessions, sessionID)
	if apiErr != nil {
		return nil, apiErr
	}

	expired, apiErr := s.finalizeIfExpired(ctx, tx, session, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if expired {
		if err := tx.Commit(); err != nil {
			return nil, apperrors.Storage("failed to commit transaction", err)
		}
		return nil, apperrors.InvalidState("session time is up")
	}

	if session.Status != model.StatusActive {
		return nil, apperrors.InvalidState("session is not active")
	}
	if apiErr := ensureVersion(baseVersion, session, now); apiErr != nil {
		return nil, apiErr
	}

	session.Freeze(now)
	if apiErr := fn(tx, session, now); apiErr != nil {
		return nil, apiErr
	}
	session.UpdatedAt = now
	if err := tx.Sessions.Update(ctx, session); err != nil {
		return nil, writeError("failed to update session", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	view := toSessionView(session, now)
	return &view, nil
}

func (s *GameService) setRunning(ctx context.Context, sessionID string, baseVersion int, running bool) (*SessionView, *apperrors.APIError) {
	now := s.clock()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	session, apiErr := getSession(ctx, tx.Sessions, sessionID)
	if apiErr != nil {
		return nil, apiErr
	}

	expired, apiErr := s.finalizeIfExpired(ctx, tx, session, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if expired {
		if err := tx.Commit(); err != nil {
			return nil, apperrors.Storage("failed to commit transaction", err)
		}
		return nil, apperrors.InvalidState("session time is up")
	}
	if session.Terminal() {
		return nil, apperrors.InvalidState("session is already finished")
	}
	if apiErr := ensureVersion(baseVersion, session, now); apiErr != nil {
		return nil, apiErr
	}

	session.Freeze(now)
	if running {
		session.Status = model.StatusActive
		session.ResumedAt = &now
	} else {
		session.Status = model.StatusPaused
		session.ResumedAt = nil
	}
	session.UpdatedAt = now

	if err := tx.Sessions.Update(ctx, session); err != nil {
		return nil, writeError("failed to update session", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}

	view := toSessionView(session, now)
	return &view, nil
}

func (s *GameService) finalizeIfExpired(ctx context.Context, tx *repository.Tx, session *model.GameSession, now time.Time) (bool, *apperrors.APIError) {
	if !session.TimedOut(now) {
		return false, nil
	}
	if _, apiErr := s.completeTx(ctx, tx, session, now); apiErr != nil {
		return false, apiErr
	}
	return true, nil
}

// completeTx decides the outcome, persists the session and records the play
// report for its owner.
func (s *GameService) completeTx(ctx context.Context, tx *repository.Tx, session *model.GameSession, now time.Time) (*model.User, *apperrors.APIError) {
	session.Freeze(now)
	if session.Score >= session.TargetScore {
		session.Status = model.StatusCompleted
	} else {
		session.Status = model.StatusFailed
	}
	session.ResumedAt = nil
	session.CompletedAt = &now
	session.UpdatedAt = now

	if err := tx.Sessions.Update(ctx, session); err != nil {
		return nil, writeError("failed to complete session", err)
	}

	user, apiErr := getUser(ctx, tx.Users, session.UserID)
	if apiErr != nil {
		return nil, apiErr
	}
	meta := ReportMeta{
		Status:         session.OutcomeLabel(),
		Phase:          session.Phase,
		ItemsCollected: session.ItemsCollected,
	}
	if apiErr := recordPlayReport(ctx, tx, user, session.Score, meta, now); apiErr != nil {
		return nil, apiErr
	}
	return user, nil
}

func claimUnit(ctx context.Context, tx *repository.Tx, session *model.GameSession, itemID string, now time.Time) (*model.InventoryItem, *apperrors.APIError) {
	unit, err := tx.Inventory.FirstUnused(ctx, session.UserID, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("item_not_owned", "no unused unit of this item")
	}
	if err != nil {
		return nil, apperrors.Storage("failed to load inventory", err)
	}
	if err := tx.Inventory.MarkUsed(ctx, unit, session.ID, now); err != nil {
		return nil, writeError("failed to consume item", err)
	}
	return unit, nil
}

func addPoints(session *model.GameSession, points int, itemType string) {
	session.Score += points
	if category, ok := game.Category(itemType); ok {
		session.ItemsCollected.Increment(category)
	}
}

func getSession(ctx context.Context, sessions *repository.SessionRepository, sessionID string) (*model.GameSession, *apperrors.APIError) {
	session, err := sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, sessionNotFound()
	}
	if err != nil {
		return nil, apperrors.Storage("failed to load session", err)
	}
	return session, nil
}

func ensureVersion(baseVersion int, session *model.GameSession, now time.Time) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == session.Version {
		return nil
	}
	return apperrors.Conflict(apperrors.CodeConflict, "session changed elsewhere", map[string]interface{}{
		"session": toSessionView(session, now),
	})
}
