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
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/logging"
)

const defaultGoogleBaseURL = "https://speech.googleapis.com"

// GoogleProvider transcribes audio through the synchronous recognize
// endpoint. The audio payload travels base64-encoded inside the JSON
// request body, which keeps the provider well below its own 25 MB input
// ceiling given the application-side size limits.
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleProvider creates a synchronous recognize provider.
func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:     apiKey,
		baseURL:    defaultGoogleBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string {
	return "Google Speech"
}

type googleRecognizeConfig struct {
	Encoding                   string   `json:"encoding"`
	SampleRateHertz            int      `json:"sampleRateHertz"`
	LanguageCode               string   `json:"languageCode"`
	AlternativeLanguageCodes   []string `json:"alternativeLanguageCodes"`
	EnableAutomaticPunctuation bool     `json:"enableAutomaticPunctuation"`
	EnableWordConfidence       bool     `json:"enableWordConfidence"`
	Model                      string   `json:"model"`
}

type googleRecognizeRequest struct {
	Config googleRecognizeConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type googleRecognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe implements Provider.
func (p *GoogleProvider) Transcribe(ctx context.Context, asset *audio.Asset, languageHint string) (*Result, error) {
	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return nil, wrapError(CategoryAssetUnavailable, err, "reading audio asset")
	}

	language := languageHint
	if language == "" {
		language = "lv-LV"
	}

	reqBody := googleRecognizeRequest{
		Config: googleRecognizeConfig{
			Encoding:                   "WEBM_OPUS",
			SampleRateHertz:            48000,
			LanguageCode:               language,
			AlternativeLanguageCodes:   []string{"en-US", "ru-RU"},
			EnableAutomaticPunctuation: true,
			EnableWordConfidence:       true,
			Model:                      "latest_long",
		},
	}
	reqBody.Audio.Content = base64.StdEncoding.EncodeToString(data)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "encoding recognize request")
	}

	endpoint := p.baseURL + "/v1/speech:recognize?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "creating recognize request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "recognize request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		category := classifyHTTPStatus(resp.StatusCode, string(body), CategoryUnclassified)
		return nil, newError(category, "recognize failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var recognizeResp googleRecognizeResponse
	if err := json.Unmarshal(body, &recognizeResp); err != nil {
		return nil, wrapError(CategoryUnclassified, err, "parsing recognize response")
	}

	if len(recognizeResp.Results) == 0 || len(recognizeResp.Results[0].Alternatives) == 0 {
		return nil, newError(CategoryEmptyResult, "recognition returned no alternatives")
	}

	best := recognizeResp.Results[0].Alternatives[0]
	if strings.TrimSpace(best.Transcript) == "" {
		return nil, newError(CategoryEmptyResult, "recognition returned an empty transcript")
	}

	confidence := best.Confidence
	if confidence == 0 {
		confidence = 0.9
	}

	logging.LogProviderCall(p.Name(), "/v1/speech:recognize",
		zap.String("language", language),
		zap.Int("results", len(recognizeResp.Results)),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()))

	return &Result{
		Success:    true,
		Text:       best.Transcript,
		Confidence: confidence,
		Provider:   p.Name(),
	}, nil
}
