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

package speech

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func attachTestRuntime(t *testing.T, hub *RuntimeHub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing runtime websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for !hub.Available() {
		if time.Now().After(deadline) {
			t.Fatal("runtime never attached")
		}
		time.Sleep(time.Millisecond)
	}

	return conn
}

func TestRuntimeHubRecognize(t *testing.T) {
	hub := NewRuntimeHub()
	conn := attachTestRuntime(t, hub)

	// Answer the relayed request like a browser recognizer would.
	go func() {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]interface{}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		if req["type"] != "transcribe" {
			return
		}
		resp, _ := json.Marshal(map[string]interface{}{
			"type":       "result",
			"session_id": req["session_id"],
			"text":       "labdien no pārlūka",
			"confidence": 0.91,
		})
		conn.WriteMessage(websocket.TextMessage, resp)
	}()

	rec, err := hub.Recognize("ZGF0YQ==", "audio/webm", "lv-LV")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if rec.Text != "labdien no pārlūka" {
		t.Errorf("Text = %q", rec.Text)
	}
	if rec.Confidence != 0.91 {
		t.Errorf("Confidence = %v", rec.Confidence)
	}
}

func TestRuntimeHubRelaysErrorCode(t *testing.T) {
	hub := NewRuntimeHub()
	conn := attachTestRuntime(t, hub)

	go func() {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]interface{}
		json.Unmarshal(payload, &req)
		resp, _ := json.Marshal(map[string]interface{}{
			"type":       "error",
			"session_id": req["session_id"],
			"error_code": "no-speech",
		})
		conn.WriteMessage(websocket.TextMessage, resp)
	}()

	rec, err := hub.Recognize("ZGF0YQ==", "audio/webm", "lv")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if rec.ErrorCode != "no-speech" {
		t.Errorf("ErrorCode = %q", rec.ErrorCode)
	}
}

func TestRuntimeHubNoRuntime(t *testing.T) {
	hub := NewRuntimeHub()
	if hub.Available() {
		t.Error("Available() = true with no attachment")
	}
	if _, err := hub.Recognize("ZGF0YQ==", "audio/webm", "lv"); !errors.Is(err, ErrNoRuntime) {
		t.Errorf("Recognize() error = %v, want ErrNoRuntime", err)
	}
}

func TestRuntimeHubDetachFailsPendingSessions(t *testing.T) {
	hub := NewRuntimeHub()
	conn := attachTestRuntime(t, hub)

	type outcome struct {
		rec *Recognition
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rec, err := hub.Recognize("ZGF0YQ==", "audio/webm", "lv")
		done <- outcome{rec, err}
	}()

	// Let the request land in the session table, then drop the runtime.
	time.Sleep(20 * time.Millisecond)
	conn.Close()

	select {
	case out := <-done:
		if !errors.Is(out.err, ErrNoRuntime) {
			t.Errorf("pending session error = %v, want ErrNoRuntime", out.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending session never resolved after detach")
	}
}

func TestSessionResolvesOnce(t *testing.T) {
	session := newSession()

	if !session.resolve(&Recognition{Text: "first"}, nil) {
		t.Fatal("first resolve must win")
	}
	if session.resolve(&Recognition{Text: "second"}, nil) {
		t.Error("second resolve must be discarded")
	}
	session.Cancel() // also a no-op after resolution

	rec, err := session.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if rec.Text != "first" {
		t.Errorf("Text = %q, want the first resolution", rec.Text)
	}
}

func TestSessionCancel(t *testing.T) {
	session := newSession()
	session.Cancel()

	if _, err := session.Wait(); !errors.Is(err, ErrSessionCancelled) {
		t.Errorf("Wait() error = %v, want ErrSessionCancelled", err)
	}
}
