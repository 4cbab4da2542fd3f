package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
)

const maxBonusNameLength = 64

// EconomyService owns the senacoin balance: report credits, spending and
// bonus flags.
type EconomyService struct {
	store *repository.Store
	clock Clock
}

type ReportMeta struct {
	Status         string
	Phase          int
	ItemsCollected model.ItemCounts
}

func NewEconomyService(store *repository.Store, opts ...Option) *EconomyService {
	o := buildOptions(opts)
	return &EconomyService{store: store, clock: o.clock}
}

func (s *EconomyService) RecordPlayReport(ctx context.Context, userID string, score int, meta ReportMeta) (*model.UserView, *apperrors.APIError) {
	if score < 0 {
		return nil, apperrors.Validation("score must not be negative")
	}

	now := s.clock()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := getUser(ctx, tx.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := recordPlayReport(ctx, tx, user, score, meta, now); apiErr != nil {
		return nil, apiErr
	}

	view, apiErr := loadUserView(ctx, tx.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	return view, nil
}

func (s *EconomyService) Spend(ctx context.Context, userID string, amount int) (*model.UserView, *apperrors.APIError) {
	if amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := getUser(ctx, tx.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := spendSenacoins(user, amount); apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Users.Update(ctx, user); err != nil {
		return nil, writeError("failed to update balance", err)
	}

	view, apiErr := loadUserView(ctx, tx.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	return view, nil
}

func (s *EconomyService) SetBonusFlag(ctx context.Context, userID, name string, value bool) (*model.UserView, *apperrors.APIError) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxBonusNameLength {
		return nil, apperrors.Validation("bonus name must be 1 to 64 characters")
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := getUser(ctx, tx.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if user.Bonuses == nil {
		user.Bonuses = model.DefaultBonuses()
	}
	user.Bonuses[name] = value
	if err := tx.Users.Update(ctx, user); err != nil {
		return nil, writeError("failed to update bonus", err)
	}

	view, apiErr := loadUserView(ctx, tx.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	return view, nil
}

// recordPlayReport appends the report and credits floor(score/10) senacoins
// inside the caller's transaction.
func recordPlayReport(ctx context.Context, tx *repository.Tx, user *model.User, score int, meta ReportMeta, now time.Time) *apperrors.APIError {
	phase := meta.Phase
	if phase < 1 {
		phase = model.DefaultPhase
	}
	status := meta.Status
	if status == "" {
		status = model.StatusCompleted
	}

	report := model.PlayReport{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		PlayedAt:       now,
		Score:          score,
		Status:         status,
		Username:       user.Fullname,
		Phase:          phase,
		ItemsCollected: meta.ItemsCollected,
	}
	if err := tx.Users.AppendReport(ctx, &report); err != nil {
		return apperrors.Storage("failed to record play report", err)
	}

	user.Senacoins += model.CoinsForScore(score)
	user.LastLogin = now
	if err := tx.Users.Update(ctx, user); err != nil {
		return writeError("failed to credit senacoins", err)
	}
	return nil
}

// spendSenacoins debits user in memory; it leaves the balance untouched when
// funds are short.
func spendSenacoins(user *model.User, amount int) *apperrors.APIError {
	if amount > user.Senacoins {
		return apperrors.InsufficientFunds(user.Senacoins, amount)
	}
	user.Senacoins -= amount
	return nil
}

func getUser(ctx context.Context, users *repository.UserRepository, userID string) (*model.User, *apperrors.APIError) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Validation("userId is required")
	}
	user, err := users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, userNotFound()
	}
	if err != nil {
		return nil, apperrors.Storage("failed to load user", err)
	}
	return user, nil
}
