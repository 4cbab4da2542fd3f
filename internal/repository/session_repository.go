package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collectgame/backend/internal/model"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, phase, score, target_score, time_remaining_ms, pens, cups, books,
	status, started_at, resumed_at, completed_at, multiplier_expires_at, version, created_at, updated_at`

func (r *SessionRepository) Insert(ctx context.Context, session *model.GameSession) error {
	if session.Version == 0 {
		session.Version = 1
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO game_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Phase,
		session.Score,
		session.TargetScore,
		session.Remaining.Milliseconds(),
		session.ItemsCollected.Pens,
		session.ItemsCollected.Cups,
		session.ItemsCollected.Books,
		session.Status,
		formatTime(session.StartedAt),
		formatNullableTime(session.ResumedAt),
		formatNullableTime(session.CompletedAt),
		formatNullableTime(session.MultiplierExpiresAt),
		session.Version,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*model.GameSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// Update is version checked like UserRepository.Update.
func (r *SessionRepository) Update(ctx context.Context, session *model.GameSession) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE game_sessions
		 SET score = ?,
		     time_remaining_ms = ?,
		     pens = ?,
		     cups = ?,
		     books = ?,
		     status = ?,
		     resumed_at = ?,
		     completed_at = ?,
		     multiplier_expires_at = ?,
		     updated_at = ?,
		     version = version + 1
		 WHERE id = ? AND version = ?`,
		session.Score,
		session.Remaining.Milliseconds(),
		session.ItemsCollected.Pens,
		session.ItemsCollected.Cups,
		session.ItemsCollected.Books,
		session.Status,
		formatNullableTime(session.ResumedAt),
		formatNullableTime(session.CompletedAt),
		formatNullableTime(session.MultiplierExpiresAt),
		formatTime(session.UpdatedAt),
		session.ID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if err := expectOneRow(result, "update session"); err != nil {
		return err
	}
	session.Version++
	return nil
}

// FindActiveByUser returns the most recently created active session.
func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID string) (*model.GameSession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM game_sessions
		 WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID,
		model.StatusActive,
	)
	return scanSession(row)
}

// ListByUser returns sessions newest first. A limit <= 0 returns all of them.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.GameSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM game_sessions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *SessionRepository) ListByStatus(ctx context.Context, status string) ([]model.GameSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE status = ? ORDER BY created_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions by status: %w", err)
	}
	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]model.GameSession, error) {
	defer rows.Close()

	sessions := make([]model.GameSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(s scanner) (*model.GameSession, error) {
	var session model.GameSession
	var startedAt, createdAt, updatedAt string
	var resumedAt, completedAt, multiplierExpiresAt sql.NullString
	var remainingMillis int64
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.Phase,
		&session.Score,
		&session.TargetScore,
		&remainingMillis,
		&session.ItemsCollected.Pens,
		&session.ItemsCollected.Cups,
		&session.ItemsCollected.Books,
		&session.Status,
		&startedAt,
		&resumedAt,
		&completedAt,
		&multiplierExpiresAt,
		&session.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.SetRemaining(time.Duration(remainingMillis) * time.Millisecond)

	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	if session.ResumedAt, err = parseNullableTime(resumedAt, "session resumed_at"); err != nil {
		return nil, err
	}
	if session.CompletedAt, err = parseNullableTime(completedAt, "session completed_at"); err != nil {
		return nil, err
	}
	if session.MultiplierExpiresAt, err = parseNullableTime(multiplierExpiresAt, "session multiplier_expires_at"); err != nil {
		return nil, err
	}
	return &session, nil
}
