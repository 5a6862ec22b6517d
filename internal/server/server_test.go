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

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/logging"
)

func createTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			UploadDir:    filepath.Join(dir, "uploads"),
			SessionTTL:   time.Hour,
		},
		Database: config.DatabaseConfig{
			Path: filepath.Join(dir, "dienas-test.db"),
		},
		Providers: config.ProvidersConfig{
			Priority:       []string{"assemblyai", "openai", "google", "azure"},
			Language:       "lv",
			PollInterval:   time.Millisecond,
			MaxPollRetries: 3,
		},
		Audio: config.AudioConfig{
			LowQualityBytes:  50000,
			HighQualityBytes: 200000,
			MinDuration:      time.Second,
			MaxDuration:      300 * time.Second,
			MaxFileSize:      25 * 1024 * 1024,
		},
		LocalSim: config.LocalSimConfig{
			Enabled:       true,
			Delay:         time.Millisecond,
			MinConfidence: 0.85,
			MaxConfidence: 1.0,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	if err := logging.Initialize(); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	t.Cleanup(logging.Close)

	srv, err := New(createTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		srv.cancel()
		srv.hub.Close()
		srv.orchestrator.Close()
		srv.db.Close()
	})
	return srv
}

func TestNew(t *testing.T) {
	srv := newTestServer(t)

	assert.NotNil(t, srv.mux)
	assert.NotNil(t, srv.db)
	assert.NotNil(t, srv.sessions)
	assert.NotNil(t, srv.hub)
	assert.NotNil(t, srv.orchestrator)
	assert.NotNil(t, srv.nats)
	assert.NotNil(t, srv.ctx)
	assert.NotNil(t, srv.cancel)
}

func TestServerConfiguration(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, "127.0.0.1:3000", srv.server.Addr)
	assert.Equal(t, 15*time.Second, srv.server.ReadTimeout)
	assert.Equal(t, 15*time.Second, srv.server.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.server.IdleTimeout)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var health map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, "healthy", health["status"])
	assert.Contains(t, health, "timestamp")
	assert.Contains(t, health, "database")
	assert.Equal(t, false, health["speech_runtime"])
	assert.Equal(t, false, health["messaging"])
}

func TestHandleHealthMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// Routes behind session auth must reject anonymous requests before
// touching their handlers.
func TestRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/auth/me"},
		{"GET", "/api/tasks"},
		{"POST", "/api/tasks"},
		{"GET", "/api/tasks/1"},
		{"GET", "/api/diary"},
		{"POST", "/api/diary"},
		{"POST", "/api/audio"},
		{"GET", "/api/transcriptions"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestPublicRoutesRegistered(t *testing.T) {
	srv := newTestServer(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/auth/register"},
		{"POST", "/api/auth/login"},
		{"POST", "/api/auth/logout"},
		{"GET", "/api/providers"},
		{"POST", "/api/providers/test"},
		{"GET", "/health"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.NotEqual(t, http.StatusNotFound, w.Code, "route %s should be registered", ep.path)
		})
	}
}

// Registering and logging in through the wired mux exercises the full
// auth path: handler, store and session cookie.
func TestRegisterLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"email":    "anna@example.com",
		"password": "gar));drop-safe-password",
		"name":     "Anna",
	})

	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "dienas_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "register should set a session cookie")

	req = httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "anna@example.com", me["email"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAuthedTaskRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"email":    "janis@example.com",
		"password": "pietiekami-gara-parole",
		"name":     "Janis",
	})
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "dienas_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	taskBody, _ := json.Marshal(map[string]string{"title": "Nopirkt pienu"})
	req = httptest.NewRequest("POST", "/api/tasks", bytes.NewReader(taskBody))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nopirkt pienu")
}

func TestServerStartStop(t *testing.T) {
	if err := logging.Initialize(); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg := createTestConfig(t)
	cfg.Server.Port = 0
	srv, err := New(cfg)
	require.NoError(t, err)

	startErrChan := make(chan error, 1)
	go func() {
		startErrChan <- srv.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	stopErr := srv.Stop()
	assert.NoError(t, stopErr)

	select {
	case startErr := <-startErrChan:
		assert.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down within timeout")
	}
}
