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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/logging"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// openAIFixedConfidence is reported for every successful result because the
// endpoint does not expose a usable per-transcript confidence score.
const openAIFixedConfidence = 0.95

// OpenAIProvider transcribes audio in a single multipart request against
// the hosted Whisper endpoint. Unlike the upload-and-poll flow, the
// response is synchronous.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates a synchronous multipart provider.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
		model:      "whisper-1",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return "OpenAI Whisper"
}

// Transcribe implements Provider.
func (p *OpenAIProvider) Transcribe(ctx context.Context, asset *audio.Asset, languageHint string) (*Result, error) {
	file, err := os.Open(asset.Path)
	if err != nil {
		return nil, wrapError(CategoryAssetUnavailable, err, "opening audio asset")
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(asset.Path))
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "creating multipart form")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, wrapError(CategoryAssetUnavailable, err, "reading audio asset")
	}

	if err := writer.WriteField("model", p.model); err != nil {
		return nil, wrapError(CategorySubmission, err, "writing model field")
	}
	if language := primarySubtag(languageHint); language != "" && language != "auto" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, wrapError(CategorySubmission, err, "writing language field")
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, wrapError(CategorySubmission, err, "writing response format field")
	}
	if err := writer.Close(); err != nil {
		return nil, wrapError(CategorySubmission, err, "finalizing multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "creating transcription request")
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "transcription request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		category := classifyHTTPStatus(resp.StatusCode, string(body), CategoryUnclassified)
		return nil, newError(category, "transcription failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var transcription struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(body, &transcription); err != nil {
		return nil, wrapError(CategoryUnclassified, err, "parsing transcription response")
	}

	if strings.TrimSpace(transcription.Text) == "" {
		return nil, newError(CategoryEmptyResult, "transcription completed with empty text")
	}

	logging.LogProviderCall(p.Name(), "/v1/audio/transcriptions",
		zap.String("language", transcription.Language),
		zap.Float64("reported_duration", transcription.Duration),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()))

	return &Result{
		Success:    true,
		Text:       transcription.Text,
		Confidence: openAIFixedConfidence,
		Provider:   p.Name(),
	}, nil
}
