package service

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"collectgame/backend/internal/db"
	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/game"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testServices struct {
	clock   *fakeClock
	db      *sql.DB
	store   *repository.Store
	auth    *AuthService
	economy *EconomyService
	game    *GameService
	shop    *ShopService
	reports *ReportService
}

func setupServices(t *testing.T) *testServices {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(context.Background(), database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := repository.NewStore(database)
	withClock := WithClock(clock.Now)
	return &testServices{
		clock:   clock,
		db:      database,
		store:   store,
		auth:    NewAuthService(store, "test-secret", time.Hour, withClock),
		economy: NewEconomyService(store, withClock),
		game:    NewGameService(store, game.NewEngine(nil), withClock),
		shop:    NewShopService(store, withClock),
		reports: NewReportService(store, withClock),
	}
}

func login(t *testing.T, s *testServices, fullname, email string) model.UserView {
	t.Helper()
	result, apiErr := s.auth.LoginOrRegister(context.Background(), LoginInput{
		Fullname: fullname,
		Email:    email,
		Phone:    "555-0100",
	})
	if apiErr != nil {
		t.Fatalf("login %s: %v", email, apiErr)
	}
	return result.User
}

func startSession(t *testing.T, s *testServices, userID string, phase int) *SessionView {
	t.Helper()
	session, apiErr := s.game.Start(context.Background(), userID, phase)
	if apiErr != nil {
		t.Fatalf("start session: %v", apiErr)
	}
	return session
}

func expectAPIError(t *testing.T, apiErr *apperrors.APIError, status int, code string) {
	t.Helper()
	if apiErr == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if apiErr.Status != status || apiErr.Code != code {
		t.Fatalf("expected %d %s, got %d %s (%s)", status, code, apiErr.Status, apiErr.Code, apiErr.Message)
	}
}

func TestCompletedSessionCreditsSenacoins(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	user := login(t, s, "Ana Silva", "ana.silva@example.com")
	if user.Senacoins != model.StartingSenacoins || user.ID != "ana,silva_at_example,com" {
		t.Fatalf("unexpected new user %+v", user)
	}

	session := startSession(t, s, user.ID, 1)
	if session.TargetScore != 100 || session.TimeRemaining != 60 || session.Status != model.StatusActive {
		t.Fatalf("unexpected new session %+v", session)
	}

	for i := 0; i < 10; i++ {
		s.clock.Advance(time.Second)
		if _, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 10, ItemType: "pen"}); apiErr != nil {
			t.Fatalf("apply score %d: %v", i, apiErr)
		}
	}

	result, apiErr := s.game.Complete(ctx, session.ID, 0)
	if apiErr != nil {
		t.Fatalf("complete: %v", apiErr)
	}
	if result.Session.Status != model.StatusCompleted || result.Session.Score != 100 {
		t.Fatalf("unexpected completed session %+v", result.Session)
	}
	if result.Session.CompletedAt == nil || result.Session.TimeRemaining != 50 {
		t.Fatalf("expected completedAt and 50s left, got %+v", result.Session)
	}
	if result.Session.ItemsCollected.Pens != 10 {
		t.Fatalf("expected 10 pens, got %+v", result.Session.ItemsCollected)
	}
	if result.User.Senacoins != 110 || result.User.ReportsCount != 1 || result.User.PensCollected != 10 {
		t.Fatalf("unexpected user after completion %+v", result.User)
	}

	again, apiErr := s.game.Complete(ctx, session.ID, 0)
	if apiErr != nil {
		t.Fatalf("second complete: %v", apiErr)
	}
	if again.User.Senacoins != 110 || again.User.ReportsCount != 1 {
		t.Fatalf("second complete must not credit again, got %+v", again.User)
	}
}

func TestFailedSessionStillCredits(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Bruno", "bruno@example.com")

	session := startSession(t, s, user.ID, 2)
	if session.TargetScore != 200 {
		t.Fatalf("expected target 200, got %d", session.TargetScore)
	}
	if _, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 95, ItemType: "books"}); apiErr != nil {
		t.Fatalf("apply score: %v", apiErr)
	}

	result, apiErr := s.game.Complete(ctx, session.ID, 0)
	if apiErr != nil {
		t.Fatalf("complete: %v", apiErr)
	}
	if result.Session.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Session.Status)
	}
	if result.User.Senacoins != 109 || result.User.BooksCollected != 1 {
		t.Fatalf("unexpected user %+v", result.User)
	}
}

func TestStartReusesActiveSession(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")

	first := startSession(t, s, user.ID, 1)
	s.clock.Advance(5 * time.Second)
	second := startSession(t, s, user.ID, 3)
	if second.ID != first.ID || second.TargetScore != 100 || second.TimeRemaining != 55 {
		t.Fatalf("expected the running session back, got %+v", second)
	}

	_, apiErr := s.game.Start(ctx, user.ID, 0)
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)

	_, apiErr = s.game.Start(ctx, "ghost_at_example,com", 1)
	expectAPIError(t, apiErr, http.StatusNotFound, "user_not_found")
}

func TestApplyScoreRequiresActiveSession(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")
	session := startSession(t, s, user.ID, 1)

	_, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 0})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)

	_, apiErr = s.game.ApplyScore(ctx, "missing", ScoreInput{Points: 10})
	expectAPIError(t, apiErr, http.StatusNotFound, "session_not_found")

	if _, apiErr := s.game.Pause(ctx, session.ID, 0); apiErr != nil {
		t.Fatalf("pause: %v", apiErr)
	}
	if _, apiErr := s.game.Pause(ctx, session.ID, 0); apiErr != nil {
		t.Fatalf("pause of a paused session: %v", apiErr)
	}
	_, apiErr = s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 10})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)

	if _, apiErr := s.game.Resume(ctx, session.ID, 0); apiErr != nil {
		t.Fatalf("resume: %v", apiErr)
	}
	view, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 15, ItemType: "cup"})
	if apiErr != nil {
		t.Fatalf("apply score after resume: %v", apiErr)
	}
	if view.Score != 15 || view.ItemsCollected.Cups != 1 {
		t.Fatalf("unexpected session %+v", view)
	}

	if _, apiErr := s.game.Complete(ctx, session.ID, 0); apiErr != nil {
		t.Fatalf("complete: %v", apiErr)
	}
	_, apiErr = s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 10})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)
	_, apiErr = s.game.Resume(ctx, session.ID, 0)
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)
}

func TestPauseFreezesCountdown(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")
	session := startSession(t, s, user.ID, 1)

	s.clock.Advance(20 * time.Second)
	paused, apiErr := s.game.Pause(ctx, session.ID, 0)
	if apiErr != nil {
		t.Fatalf("pause: %v", apiErr)
	}
	if paused.TimeRemaining != 40 || paused.Status != model.StatusPaused {
		t.Fatalf("unexpected paused session %+v", paused)
	}

	s.clock.Advance(10 * time.Minute)
	resumed, apiErr := s.game.Resume(ctx, session.ID, 0)
	if apiErr != nil {
		t.Fatalf("resume: %v", apiErr)
	}
	if resumed.TimeRemaining != 40 {
		t.Fatalf("expected 40s after resume, got %d", resumed.TimeRemaining)
	}

	s.clock.Advance(10 * time.Second)
	active, apiErr := s.game.GetActive(ctx, user.ID)
	if apiErr != nil {
		t.Fatalf("get active: %v", apiErr)
	}
	if active.TimeRemaining != 30 {
		t.Fatalf("expected 30s left, got %d", active.TimeRemaining)
	}
}

func TestCountdownRunsUnderFrequentScoring(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")
	session := startSession(t, s, user.ID, 1)

	accepted := 0
	for i := 0; i < 200; i++ {
		s.clock.Advance(900 * time.Millisecond)
		_, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 1, ItemType: "pens"})
		if apiErr != nil {
			expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)
			break
		}
		accepted++
	}
	if accepted != 66 {
		t.Fatalf("expected the round to end after 66 scores in 60s, got %d", accepted)
	}

	history, apiErr := s.game.GetHistory(ctx, user.ID, 0)
	if apiErr != nil {
		t.Fatalf("history: %v", apiErr)
	}
	if len(history) != 1 || history[0].Status != model.StatusFailed || history[0].Score != 66 {
		t.Fatalf("expected one failed session with 66 points, got %+v", history)
	}
}

func TestPauseResumeLoopStillCountsDown(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")
	session := startSession(t, s, user.ID, 1)

	cycles := 0
	for cycles < 500 {
		s.clock.Advance(400 * time.Millisecond)
		if _, apiErr := s.game.Pause(ctx, session.ID, 0); apiErr != nil {
			expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)
			break
		}
		s.clock.Advance(400 * time.Millisecond)
		if _, apiErr := s.game.Resume(ctx, session.ID, 0); apiErr != nil {
			t.Fatalf("resume: %v", apiErr)
		}
		cycles++
	}
	if cycles != 149 {
		t.Fatalf("expected 60s of running time over 149 full cycles, got %d", cycles)
	}
}

func TestExpiredSessionIsFinalizedOnTouch(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")
	session := startSession(t, s, user.ID, 1)

	if _, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 30, ItemType: "pens"}); apiErr != nil {
		t.Fatalf("apply score: %v", apiErr)
	}

	s.clock.Advance(61 * time.Second)
	_, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 10})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)

	_, apiErr = s.game.GetActive(ctx, user.ID)
	expectAPIError(t, apiErr, http.StatusNotFound, "no_active_session")

	history, apiErr := s.game.GetHistory(ctx, user.ID, 0)
	if apiErr != nil {
		t.Fatalf("history: %v", apiErr)
	}
	if len(history) != 1 || history[0].Status != model.StatusFailed || history[0].TimeRemaining != 0 {
		t.Fatalf("expected one failed session, got %+v", history)
	}

	profile, apiErr := s.auth.GetUser(ctx, user.ID)
	if apiErr != nil {
		t.Fatalf("get user: %v", apiErr)
	}
	if profile.ReportsCount != 1 || profile.Senacoins != 103 {
		t.Fatalf("expected expiry to record the report, got %+v", profile)
	}

	next := startSession(t, s, user.ID, 1)
	if next.ID == session.ID {
		t.Fatal("expected a fresh session after expiry")
	}
}

func TestStaleBaseVersionConflicts(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")
	session := startSession(t, s, user.ID, 1)

	updated, apiErr := s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 10, BaseVersion: session.Version})
	if apiErr != nil {
		t.Fatalf("apply score: %v", apiErr)
	}
	if updated.Version != session.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}

	_, apiErr = s.game.ApplyScore(ctx, session.ID, ScoreInput{Points: 10, BaseVersion: session.Version})
	expectAPIError(t, apiErr, http.StatusConflict, apperrors.CodeConflict)
	details, ok := apiErr.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected conflict details %T", apiErr.Details)
	}
	current, ok := details["session"].(SessionView)
	if !ok || current.Version != updated.Version || current.Score != 10 {
		t.Fatalf("expected current session in details, got %+v", details["session"])
	}
}

func TestSpendAndBonusFlags(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")

	view, apiErr := s.economy.Spend(ctx, user.ID, 50)
	if apiErr != nil {
		t.Fatalf("spend 50: %v", apiErr)
	}
	if view.Senacoins != 50 {
		t.Fatalf("expected 50 left, got %d", view.Senacoins)
	}

	_, apiErr = s.economy.Spend(ctx, user.ID, 75)
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInsufficientFunds)

	_, apiErr = s.economy.Spend(ctx, user.ID, 0)
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)

	view, apiErr = s.economy.SetBonusFlag(ctx, user.ID, model.BonusDoublePoints, true)
	if apiErr != nil {
		t.Fatalf("set bonus: %v", apiErr)
	}
	if !view.Bonuses[model.BonusDoublePoints] || view.Bonuses[model.BonusExtraTime] || view.Senacoins != 50 {
		t.Fatalf("unexpected user after bonus %+v", view)
	}

	again := login(t, s, "Ana Maria", "ana@example.com")
	if again.Senacoins != 50 || again.LoginCount != 2 || again.Fullname != "Ana Maria" {
		t.Fatalf("expected returning login to keep balance, got %+v", again)
	}
}

func TestPurchasedItemsApplyToSession(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")

	if _, apiErr := s.economy.RecordPlayReport(ctx, user.ID, 1000, ReportMeta{}); apiErr != nil {
		t.Fatalf("record report: %v", apiErr)
	}
	for _, itemID := range []string{game.ItemTimeBonus, game.ItemScoreMultiplier} {
		if _, apiErr := s.shop.Purchase(ctx, PurchaseInput{UserID: user.ID, ItemID: itemID}); apiErr != nil {
			t.Fatalf("purchase %s: %v", itemID, apiErr)
		}
	}
	balance, apiErr := s.shop.Balance(ctx, user.ID)
	if apiErr != nil {
		t.Fatalf("balance: %v", apiErr)
	}
	if balance.Senacoins != 75 {
		t.Fatalf("expected 75 after purchases, got %d", balance.Senacoins)
	}

	session := startSession(t, s, user.ID, 1)

	used, apiErr := s.game.UseItem(ctx, session.ID, game.ItemTimeBonus)
	if apiErr != nil {
		t.Fatalf("use time bonus: %v", apiErr)
	}
	if used.Session.TimeRemaining != 90 || used.Unit.ItemID != game.ItemTimeBonus {
		t.Fatalf("expected 90s after time bonus, got %+v", used)
	}
	_, apiErr = s.game.UseItem(ctx, session.ID, game.ItemTimeBonus)
	expectAPIError(t, apiErr, http.StatusNotFound, "item_not_owned")

	used, apiErr = s.game.UseItem(ctx, session.ID, game.ItemScoreMultiplier)
	if apiErr != nil {
		t.Fatalf("use multiplier: %v", apiErr)
	}
	if !used.Session.MultiplierActive {
		t.Fatalf("expected multiplier active, got %+v", used.Session)
	}

	collected, apiErr := s.game.Collect(ctx, session.ID, "book", 0)
	if apiErr != nil {
		t.Fatalf("collect: %v", apiErr)
	}
	if collected.Award.Points != 40 || !collected.Award.Multiplied || collected.Session.Score != 40 {
		t.Fatalf("expected doubled book, got %+v", collected)
	}

	if _, apiErr := s.shop.Purchase(ctx, PurchaseInput{UserID: user.ID, ItemID: game.ItemScoreMultiplier}); apiErr != nil {
		t.Fatalf("second multiplier purchase: %v", apiErr)
	}
	_, apiErr = s.game.UseItem(ctx, session.ID, game.ItemScoreMultiplier)
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInvalidState)

	inventory, apiErr := s.shop.Inventory(ctx, user.ID)
	if apiErr != nil {
		t.Fatalf("inventory: %v", apiErr)
	}
	if len(inventory) != 1 || inventory[0].ItemID != game.ItemScoreMultiplier {
		t.Fatalf("rejected activation must not consume the unit, got %+v", inventory)
	}

	s.clock.Advance(61 * time.Second)
	collected, apiErr = s.game.Collect(ctx, session.ID, "book", 0)
	if apiErr != nil {
		t.Fatalf("collect after expiry: %v", apiErr)
	}
	if collected.Award.Points != 20 || collected.Session.MultiplierActive || collected.Session.Score != 60 {
		t.Fatalf("expected plain book after multiplier expiry, got %+v", collected)
	}

	_, apiErr = s.game.UseItem(ctx, session.ID, game.ItemMagnet)
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)
	_, apiErr = s.game.UseItem(ctx, session.ID, "bogus")
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)
}

func TestPurchaseValidation(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	user := login(t, s, "Ana", "ana@example.com")

	_, apiErr := s.shop.Purchase(ctx, PurchaseInput{UserID: user.ID})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)

	_, apiErr = s.shop.Purchase(ctx, PurchaseInput{UserID: "ghost", ItemID: game.ItemTimeBonus})
	expectAPIError(t, apiErr, http.StatusNotFound, "user_not_found")

	_, apiErr = s.shop.Purchase(ctx, PurchaseInput{UserID: user.ID, ItemID: "rocket"})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)

	result, apiErr := s.shop.Purchase(ctx, PurchaseInput{UserID: user.ID, ItemID: game.ItemExtraLife})
	if apiErr != nil {
		t.Fatalf("purchase extra life: %v", apiErr)
	}
	if result.User.Senacoins != 0 || result.PurchasedItem.Price != 100 {
		t.Fatalf("unexpected purchase %+v", result)
	}

	_, apiErr = s.shop.Purchase(ctx, PurchaseInput{UserID: user.ID, ItemID: game.ItemHintSystem})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeInsufficientFunds)
	inventory, apiErr := s.shop.Inventory(ctx, user.ID)
	if apiErr != nil {
		t.Fatalf("inventory: %v", apiErr)
	}
	if len(inventory) != 1 {
		t.Fatalf("failed purchase must not add a unit, got %+v", inventory)
	}
}

func TestExpireStaleCompletesOnlyTimedOutSessions(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	ana := login(t, s, "Ana", "ana@example.com")
	bruno := login(t, s, "Bruno", "bruno@example.com")

	anaSession := startSession(t, s, ana.ID, 1)
	s.clock.Advance(30 * time.Second)
	brunoSession := startSession(t, s, bruno.ID, 1)
	s.clock.Advance(31 * time.Second)

	expired, err := s.game.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected one expired session, got %d", expired)
	}

	stored, err := s.store.Sessions.Get(ctx, anaSession.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Status != model.StatusFailed || stored.CompletedAt == nil {
		t.Fatalf("expected ana's session failed, got %+v", stored)
	}
	active, apiErr := s.game.GetActive(ctx, bruno.ID)
	if apiErr != nil {
		t.Fatalf("get active: %v", apiErr)
	}
	if active.ID != brunoSession.ID || active.TimeRemaining != 29 {
		t.Fatalf("unexpected remaining session %+v", active)
	}

	expired, err = s.game.ExpireStale(ctx)
	if err != nil || expired != 0 {
		t.Fatalf("expected nothing left to expire, got %d, %v", expired, err)
	}
}

func TestExpireStaleContinuesPastFailures(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	ana := login(t, s, "Ana", "ana@example.com")

	// A session whose owner is gone cannot record its report.
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	now := s.clock.Now()
	orphan := &model.GameSession{
		ID:          "orphan",
		UserID:      "missing_at_example,com",
		Phase:       1,
		TargetScore: 100,
		Status:      model.StatusActive,
		StartedAt:   now,
		ResumedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	orphan.SetRemaining(model.DefaultSessionSeconds * time.Second)
	if err := s.store.Sessions.Insert(ctx, orphan); err != nil {
		t.Fatalf("insert orphan session: %v", err)
	}

	s.clock.Advance(time.Second)
	anaSession := startSession(t, s, ana.ID, 1)
	s.clock.Advance(2 * time.Minute)

	expired, err := s.game.ExpireStale(ctx)
	if err == nil {
		t.Fatal("expected the orphaned session to be reported")
	}
	if expired != 1 {
		t.Fatalf("expected the healthy session to still expire, got %d", expired)
	}

	stored, err := s.store.Sessions.Get(ctx, anaSession.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Status != model.StatusFailed {
		t.Fatalf("expected ana's session failed, got %s", stored.Status)
	}
	left, err := s.store.Sessions.Get(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("get orphan: %v", err)
	}
	if left.Status != model.StatusActive {
		t.Fatalf("expected the failed finalize to roll back, got %s", left.Status)
	}
}

func TestReports(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	ana := login(t, s, "Ana Silva", "ana@example.com")
	s.clock.Advance(time.Second)
	bruno := login(t, s, "Bruno", "bruno@example.com")
	s.clock.Advance(time.Second)
	login(t, s, "Carla Santana", "carla@example.com")

	won := startSession(t, s, bruno.ID, 1)
	if _, apiErr := s.game.ApplyScore(ctx, won.ID, ScoreInput{Points: 120, ItemType: "cup"}); apiErr != nil {
		t.Fatalf("apply score: %v", apiErr)
	}
	if _, apiErr := s.game.Complete(ctx, won.ID, 0); apiErr != nil {
		t.Fatalf("complete: %v", apiErr)
	}
	s.clock.Advance(time.Second)
	lost := startSession(t, s, bruno.ID, 1)
	if _, apiErr := s.game.Complete(ctx, lost.ID, 0); apiErr != nil {
		t.Fatalf("complete: %v", apiErr)
	}
	if _, apiErr := s.economy.RecordPlayReport(ctx, ana.ID, 40, ReportMeta{}); apiErr != nil {
		t.Fatalf("record report: %v", apiErr)
	}

	ranking, apiErr := s.reports.Ranking(ctx, 0)
	if apiErr != nil {
		t.Fatalf("ranking: %v", apiErr)
	}
	if len(ranking) != 3 || ranking[0].ID != bruno.ID || ranking[1].ID != ana.ID || ranking[2].Position != 3 {
		t.Fatalf("unexpected ranking %+v", ranking)
	}
	if limited, _ := s.reports.Ranking(ctx, 1); len(limited) != 1 {
		t.Fatalf("expected limited ranking, got %+v", limited)
	}

	stats, apiErr := s.reports.Stats(ctx)
	if apiErr != nil {
		t.Fatalf("stats: %v", apiErr)
	}
	if stats.TotalUsers != 3 || stats.TotalScore != 160 || stats.AverageScore != 53 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.TopPlayer == nil || stats.TopPlayer.Fullname != "Bruno" || stats.TotalCupsCollected != 1 {
		t.Fatalf("unexpected top player %+v", stats)
	}

	report, apiErr := s.reports.UserReport(ctx, bruno.ID)
	if apiErr != nil {
		t.Fatalf("user report: %v", apiErr)
	}
	if report.SessionStats.Total != 2 || report.SessionStats.Completed != 1 || report.SessionStats.SuccessRate != 50 {
		t.Fatalf("unexpected session stats %+v", report.SessionStats)
	}
	if len(report.RecentSessions) != 2 || report.RecentSessions[0].ID != lost.ID {
		t.Fatalf("expected newest session first, got %+v", report.RecentSessions)
	}

	_, apiErr = s.reports.Search(ctx, "a")
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)

	found, apiErr := s.reports.Search(ctx, "AN")
	if apiErr != nil {
		t.Fatalf("search: %v", apiErr)
	}
	if found.Total != 2 || len(found.Results) != 2 {
		t.Fatalf("expected Ana Silva and Carla Santana, got %+v", found)
	}
}

func TestParseToken(t *testing.T) {
	s := setupServices(t)
	auth := NewAuthService(s.store, "test-secret", time.Hour)

	result, apiErr := auth.LoginOrRegister(context.Background(), LoginInput{
		Fullname: "Ana",
		Email:    "ana@example.com",
		Phone:    "555-0100",
	})
	if apiErr != nil {
		t.Fatalf("login: %v", apiErr)
	}

	userID, apiErr := auth.ParseToken(result.Token)
	if apiErr != nil {
		t.Fatalf("parse token: %v", apiErr)
	}
	if userID != result.User.ID {
		t.Fatalf("expected subject %s, got %s", result.User.ID, userID)
	}

	other := NewAuthService(s.store, "other-secret", time.Hour)
	_, apiErr = other.ParseToken(result.Token)
	expectAPIError(t, apiErr, http.StatusUnauthorized, "unauthorized")

	_, apiErr = auth.LoginOrRegister(context.Background(), LoginInput{Fullname: "Ana", Email: "not-an-email", Phone: "1"})
	expectAPIError(t, apiErr, http.StatusBadRequest, apperrors.CodeValidation)
}
