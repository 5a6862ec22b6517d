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

// Package speech relays recognition requests to an attached client runtime
// over a websocket. Browsers carry their own speech recognizers; when one
// is connected it can serve on-device recognition for the whole pipeline.
package speech

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/logging"
)

// ErrNoRuntime is returned when no client runtime is attached.
var ErrNoRuntime = errors.New("no speech runtime attached")

// ErrSessionCancelled is reported to waiters when a session is cancelled
// before the runtime resolves it.
var ErrSessionCancelled = errors.New("speech session cancelled")

const sessionTimeout = 60 * time.Second

// Recognition is the resolved output of a relayed session.
type Recognition struct {
	Text       string
	Confidence float64
	// ErrorCode carries the runtime's recognizer error code (for example
	// "no-speech" or "not-allowed") when recognition failed.
	ErrorCode string
}

type runtimeRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Language  string `json:"language,omitempty"`
	AudioB64  string `json:"audio,omitempty"`
	MIMEType  string `json:"mime_type,omitempty"`
}

type runtimeResponse struct {
	Type       string  `json:"type"`
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	ErrorCode  string  `json:"error_code"`
}

// Session tracks a single relayed recognition request. It resolves exactly
// once: the first of a runtime response, a cancellation or a timeout wins
// and every later outcome is discarded.
type Session struct {
	ID string

	mu       sync.Mutex
	resolved bool
	done     chan sessionOutcome
}

type sessionOutcome struct {
	recognition *Recognition
	err         error
}

func newSession() *Session {
	return &Session{
		ID:   uuid.New().String(),
		done: make(chan sessionOutcome, 1),
	}
}

// resolve delivers the outcome if the session is still open.
func (s *Session) resolve(rec *Recognition, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return false
	}
	s.resolved = true
	s.done <- sessionOutcome{recognition: rec, err: err}
	return true
}

// Cancel resolves the session with ErrSessionCancelled if it has not
// already resolved. Safe to call multiple times.
func (s *Session) Cancel() {
	s.resolve(nil, ErrSessionCancelled)
}

// Wait blocks until the session resolves.
func (s *Session) Wait() (*Recognition, error) {
	outcome := <-s.done
	return outcome.recognition, outcome.err
}

// RuntimeHub holds the attached client runtime connection and the sessions
// in flight against it. At most one runtime is attached at a time; a new
// attachment displaces the previous one.
type RuntimeHub struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	sessions map[string]*Session
}

// NewRuntimeHub creates an empty hub with no runtime attached.
func NewRuntimeHub() *RuntimeHub {
	return &RuntimeHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
}

// Available reports whether a client runtime is currently attached.
func (h *RuntimeHub) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// HandleWebSocket upgrades the request and attaches the connection as the
// active runtime. It blocks reading responses until the connection drops.
func (h *RuntimeHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogError(err, "Speech runtime websocket upgrade failed")
		return
	}

	h.attach(conn)
	logging.LogInfo("Speech runtime attached", zap.String("remote", conn.RemoteAddr().String()))

	h.readLoop(conn)

	h.detach(conn)
	logging.LogInfo("Speech runtime detached", zap.String("remote", conn.RemoteAddr().String()))
}

func (h *RuntimeHub) attach(conn *websocket.Conn) {
	h.mu.Lock()
	previous := h.conn
	h.conn = conn
	h.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
}

// detach drops the connection and fails every session that was waiting on
// it, so callers never hang on a runtime that went away.
func (h *RuntimeHub) detach(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conn != conn {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conn = nil
	orphaned := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		orphaned = append(orphaned, session)
	}
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	conn.Close()
	for _, session := range orphaned {
		session.resolve(nil, ErrNoRuntime)
	}
}

func (h *RuntimeHub) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var resp runtimeResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			logging.LogWarn("Discarding malformed speech runtime message", zap.Error(err))
			continue
		}

		h.dispatch(&resp)
	}
}

func (h *RuntimeHub) dispatch(resp *runtimeResponse) {
	h.mu.Lock()
	session, ok := h.sessions[resp.SessionID]
	if ok {
		delete(h.sessions, resp.SessionID)
	}
	h.mu.Unlock()

	if !ok {
		// Late or duplicate answer for a session that already resolved.
		logging.LogWarn("Speech runtime answered an unknown session",
			zap.String("session_id", resp.SessionID),
			zap.String("type", resp.Type))
		return
	}

	switch resp.Type {
	case "result":
		session.resolve(&Recognition{Text: resp.Text, Confidence: resp.Confidence}, nil)
	case "error":
		session.resolve(&Recognition{ErrorCode: resp.ErrorCode}, nil)
	default:
		session.resolve(nil, fmt.Errorf("unexpected runtime message type %q", resp.Type))
	}
}

// Recognize relays an encoded audio payload to the attached runtime and
// waits for the single resolution. The session times out if the runtime
// never answers.
func (h *RuntimeHub) Recognize(audioB64, mimeType, language string) (*Recognition, error) {
	session := newSession()

	h.mu.Lock()
	conn := h.conn
	if conn != nil {
		h.sessions[session.ID] = session
	}
	h.mu.Unlock()

	if conn == nil {
		return nil, ErrNoRuntime
	}

	req := runtimeRequest{
		Type:      "transcribe",
		SessionID: session.ID,
		Language:  language,
		AudioB64:  audioB64,
		MIMEType:  mimeType,
	}
	if err := h.writeRequest(conn, &req); err != nil {
		h.forget(session.ID)
		return nil, fmt.Errorf("sending recognition request: %w", err)
	}

	timer := time.AfterFunc(sessionTimeout, func() {
		h.forget(session.ID)
		session.resolve(nil, fmt.Errorf("speech runtime did not answer within %s", sessionTimeout))
	})
	defer timer.Stop()

	return session.Wait()
}

func (h *RuntimeHub) writeRequest(conn *websocket.Conn, req *runtimeRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	// gorilla connections allow one concurrent writer.
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *RuntimeHub) forget(sessionID string) {
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
}

// Close detaches any active runtime and fails pending sessions.
func (h *RuntimeHub) Close() {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn != nil {
		h.detach(conn)
	}
}
