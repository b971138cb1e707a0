package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/observability"
	"github.com/kjstillabower/weather-desk/internal/validation"
)

// CreateUser stores a new account with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (models.User, error) {
	username, password, err := validation.ValidateCredentials(username, password)
	if err != nil {
		return models.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{Username: username, PasswordHash: string(hash), CreatedAt: s.now().UTC()}
	start := time.Now()
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)
	observe("create_user", start)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return models.User{}, dbError("create user", err)
	}
	return u, nil
}

// Authenticate checks username and password. Blank input is rejected with
// ErrMissingCredentials before the database is queried. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	username, password, err := validation.ValidateCredentials(username, password)
	if err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("missing").Inc()
		return models.User{}, err
	}

	var u models.User
	start := time.Now()
	err = s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	observe("authenticate", start)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		observability.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return models.User{}, ErrInvalidCredentials
	case err != nil:
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return models.User{}, dbError("authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return models.User{}, ErrInvalidCredentials
	}
	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return u, nil
}
