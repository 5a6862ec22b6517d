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

// Package auth provides password hashing and cookie session handling for
// the hub's HTTP API.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dienaslabs/dienas-hub/internal/storage"
)

// SessionCookie is the name of the login session cookie.
const SessionCookie = "dienas_session"

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewSessionToken generates an opaque random session token.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Sessions authenticates HTTP requests against stored sessions.
type Sessions struct {
	users *storage.UserStore
	ttl   time.Duration
}

// NewSessions creates a session authenticator.
func NewSessions(users *storage.UserStore, ttl time.Duration) *Sessions {
	return &Sessions{users: users, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue creates a session for the user and sets the cookie.
func (s *Sessions) Issue(w http.ResponseWriter, userID int64) error {
	token, err := NewSessionToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(s.ttl)
	if err := s.users.CreateSession(token, userID, expires); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Revoke deletes the request's session, if any, and clears the cookie.
func (s *Sessions) Revoke(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.users.DeleteSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFromRequest resolves the request's session cookie to an account.
func (s *Sessions) UserFromRequest(r *http.Request) (*storage.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return s.users.GetSession(cookie.Value)
}

// Require wraps a handler so it only runs for authenticated requests.
func (s *Sessions) Require(next func(w http.ResponseWriter, r *http.Request, user *storage.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.UserFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "authentication required"}`))
			return
		}
		next(w, r, user)
	}
}
