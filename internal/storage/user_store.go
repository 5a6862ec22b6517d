/*
 * This file is part of Dienas (https://github.com/dienaslabs/dienas).
 * Copyright (C) 2025 Dienas Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/logging"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// User is an account row.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a login session row.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserStore handles database operations for accounts and sessions.
type UserStore struct {
	db *Database
}

// NewUserStore creates a user store.
func NewUserStore(db *Database) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new account. The email must be unused.
func (s *UserStore) CreateUser(email, name, passwordHash string) (*User, error) {
	result, err := s.db.DB().Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted user id: %w", err)
	}

	logging.LogDatabaseOperation("insert", "users", zap.Int64("user_id", id))
	return s.GetUserByID(id)
}

// GetUserByEmail fetches an account by email.
func (s *UserStore) GetUserByEmail(email string) (*User, error) {
	row := s.db.DB().QueryRow(
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID fetches an account by id.
func (s *UserStore) GetUserByID(id int64) (*User, error) {
	row := s.db.DB().QueryRow(
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// CreateSession stores a login session.
func (s *UserStore) CreateSession(token string, userID int64, expiresAt time.Time) error {
	_, err := s.db.DB().Exec(
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession resolves a session token to an account. Expired sessions are
// treated as missing and removed opportunistically.
func (s *UserStore) GetSession(token string) (*User, error) {
	var (
		userID    int64
		expiresAt time.Time
	)
	err := s.db.DB().QueryRow(
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if time.Now().After(expiresAt) {
		s.DeleteSession(token)
		return nil, ErrNotFound
	}

	return s.GetUserByID(userID)
}

// DeleteSession removes one session.
func (s *UserStore) DeleteSession(token string) error {
	if _, err := s.db.DB().Exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session past its expiry.
func (s *UserStore) DeleteExpiredSessions() (int64, error) {
	result, err := s.db.DB().Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		logging.LogDatabaseOperation("cleanup", "sessions", zap.Int64("removed", n))
	}
	return n, nil
}
