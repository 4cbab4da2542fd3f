package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
	"collectgame/backend/internal/userkey"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthService struct {
	store     *repository.Store
	jwtSecret []byte
	tokenTTL  time.Duration
	clock     Clock
}

func NewAuthService(store *repository.Store, jwtSecret string, tokenTTL time.Duration, opts ...Option) *AuthService {
	o := buildOptions(opts)
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		clock:     o.clock,
	}
}

type LoginInput struct {
	Fullname string
	Email    string
	Phone    string
}

type UpdateUserInput struct {
	Fullname string
	Phone    string
}

type AuthResult struct {
	Token string         `json:"token"`
	User  model.UserView `json:"user"`
}

// LoginOrRegister finds the profile filed under the email's key, creating it
// with the starting grant on first login.
func (s *AuthService) LoginOrRegister(ctx context.Context, input LoginInput) (*AuthResult, *apperrors.APIError) {
	fullname := strings.TrimSpace(input.Fullname)
	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	if fullname == "" || email == "" || phone == "" {
		return nil, apperrors.Validation("fullname, email and phone are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.Validation("invalid email")
	}

	now := s.clock()
	key := userkey.Encode(email)

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, err := tx.Users.Get(ctx, key)
	switch {
	case err == nil:
		user.Fullname = fullname
		user.Phone = phone
		user.LoginCount++
		user.LastLogin = now
		if err := tx.Users.Update(ctx, user); err != nil {
			return nil, writeError("failed to update user", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		user = &model.User{
			ID:         key,
			Email:      email,
			Fullname:   fullname,
			Phone:      phone,
			Senacoins:  model.StartingSenacoins,
			LoginCount: 1,
			Bonuses:    model.DefaultBonuses(),
			CreatedAt:  now,
			LastLogin:  now,
		}
		if err := tx.Users.Create(ctx, user); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return nil, apperrors.Conflict(apperrors.CodeConflict, "user registered concurrently, retry login", nil)
			}
			return nil, apperrors.Storage("failed to create user", err)
		}
	default:
		return nil, apperrors.Storage("failed to query user", err)
	}

	view, apiErr := loadUserView(ctx, tx.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}

	token, apiErr := s.issueToken(user.ID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	return &AuthResult{Token: token, User: *view}, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.UserView, *apperrors.APIError) {
	user, apiErr := getUser(ctx, s.store.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	return loadUserView(ctx, s.store.Users, user)
}

// UpdateUser changes the fields that are non-empty in input.
func (s *AuthService) UpdateUser(ctx context.Context, userID string, input UpdateUserInput) (*model.UserView, *apperrors.APIError) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := getUser(ctx, tx.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if fullname := strings.TrimSpace(input.Fullname); fullname != "" {
		user.Fullname = fullname
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		user.Phone = phone
	}
	if err := tx.Users.Update(ctx, user); err != nil {
		return nil, writeError("failed to update user", err)
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

// ParseToken returns the user key an identity token was issued for.
func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}
	return claims.Subject, nil
}

func (s *AuthService) issueToken(userID string, now time.Time) (string, *apperrors.APIError) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.Internal("failed to sign token")
	}
	return signed, nil
}
