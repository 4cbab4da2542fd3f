package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"collectgame/backend/internal/model"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, fullname, phone, senacoins, login_count, bonuses, version, created_at, last_login`

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	bonuses, err := encodeBonuses(user.Bonuses)
	if err != nil {
		return err
	}
	if user.Version == 0 {
		user.Version = 1
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Fullname,
		user.Phone,
		user.Senacoins,
		user.LoginCount,
		bonuses,
		user.Version,
		formatTime(user.CreatedAt),
		formatTime(user.LastLogin),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// Update writes user if its stored version still equals user.Version, then
// bumps the version on both sides.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	bonuses, err := encodeBonuses(user.Bonuses)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(
		ctx,
		`UPDATE users
		 SET fullname = ?,
		     phone = ?,
		     senacoins = ?,
		     login_count = ?,
		     bonuses = ?,
		     last_login = ?,
		     version = version + 1
		 WHERE id = ? AND version = ?`,
		user.Fullname,
		user.Phone,
		user.Senacoins,
		user.LoginCount,
		bonuses,
		formatTime(user.LastLogin),
		user.ID,
		user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err := expectOneRow(result, "update user"); err != nil {
		return err
	}
	user.Version++
	return nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

const reportColumns = `id, user_id, played_at, score, status, username, phase, pens, cups, books`

func (r *UserRepository) AppendReport(ctx context.Context, report *model.PlayReport) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO play_reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.UserID,
		formatTime(report.PlayedAt),
		report.Score,
		report.Status,
		report.Username,
		report.Phase,
		report.ItemsCollected.Pens,
		report.ItemsCollected.Cups,
		report.ItemsCollected.Books,
	)
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}
	return nil
}

// ListReports returns a user's reports, newest first.
func (r *UserRepository) ListReports(ctx context.Context, userID string) ([]model.PlayReport, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+reportColumns+` FROM play_reports WHERE user_id = ? ORDER BY played_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return collectReports(rows)
}

// ListAllReports returns every report grouped by user key.
func (r *UserRepository) ListAllReports(ctx context.Context) (map[string][]model.PlayReport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM play_reports ORDER BY played_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all reports: %w", err)
	}
	reports, err := collectReports(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]model.PlayReport)
	for _, report := range reports {
		grouped[report.UserID] = append(grouped[report.UserID], report)
	}
	return grouped, nil
}

func collectReports(rows *sql.Rows) ([]model.PlayReport, error) {
	defer rows.Close()

	reports := make([]model.PlayReport, 0)
	for rows.Next() {
		var report model.PlayReport
		var playedAt string
		if err := rows.Scan(
			&report.ID,
			&report.UserID,
			&playedAt,
			&report.Score,
			&report.Status,
			&report.Username,
			&report.Phase,
			&report.ItemsCollected.Pens,
			&report.ItemsCollected.Cups,
			&report.ItemsCollected.Books,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		parsed, err := parseTime(playedAt)
		if err != nil {
			return nil, fmt.Errorf("parse report played_at: %w", err)
		}
		report.PlayedAt = parsed
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var bonuses string
	var createdAt string
	var lastLogin string
	err := s.Scan(
		&user.ID,
		&user.Email,
		&user.Fullname,
		&user.Phone,
		&user.Senacoins,
		&user.LoginCount,
		&bonuses,
		&user.Version,
		&createdAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Bonuses = model.DefaultBonuses()
	if bonuses != "" {
		if err := json.Unmarshal([]byte(bonuses), &user.Bonuses); err != nil {
			return nil, fmt.Errorf("decode user bonuses: %w", err)
		}
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse user created_at: %w", err)
	}
	if user.LastLogin, err = parseTime(lastLogin); err != nil {
		return nil, fmt.Errorf("parse user last_login: %w", err)
	}
	return &user, nil
}

func encodeBonuses(bonuses map[string]bool) (string, error) {
	if bonuses == nil {
		bonuses = model.DefaultBonuses()
	}
	raw, err := json.Marshal(bonuses)
	if err != nil {
		return "", fmt.Errorf("encode user bonuses: %w", err)
	}
	return string(raw), nil
}
