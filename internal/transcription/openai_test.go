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

package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAITranscribeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "lv" {
			t.Errorf("language = %q, want primary subtag lv", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"text":     "šodien bija laba diena",
			"language": "latvian",
			"duration": 4.2,
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key")
	provider.baseURL = server.URL

	result, err := provider.Transcribe(context.Background(), writeTestClip(t, 4000), "lv-LV")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result.Text != "šodien bija laba diena" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Confidence != openAIFixedConfidence {
		t.Errorf("Confidence = %v, want fixed %v", result.Confidence, openAIFixedConfidence)
	}
}

func TestOpenAIErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Category
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, CategoryUnauthorized},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"unsupported file"}}`, CategoryBadRequest},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"quota exceeded"}}`, CategoryQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewOpenAIProvider("test-key")
			provider.baseURL = server.URL

			_, err := provider.Transcribe(context.Background(), writeTestClip(t, 4000), "lv")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := CategoryOf(err); got != tt.want {
				t.Errorf("category = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenAIEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "  "})
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key")
	provider.baseURL = server.URL

	_, err := provider.Transcribe(context.Background(), writeTestClip(t, 4000), "lv")
	if got := CategoryOf(err); got != CategoryEmptyResult {
		t.Errorf("category = %v, want %v", got, CategoryEmptyResult)
	}
}
