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
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/logging"
)

const (
	defaultAssemblyAIBaseURL = "https://api.assemblyai.com"

	// assemblyAIMaxPayload is the provider-side upload ceiling. It is
	// deliberately larger than the application-side validator limit.
	assemblyAIMaxPayload = 50 * 1024 * 1024

	// tinyPayloadBytes marks payloads that are suspiciously small but still
	// worth attempting.
	tinyPayloadBytes = 1000
)

// nanoModelLanguages lists language codes that the service only handles on
// its lightweight "nano" model. The mapping is applied before submission,
// never as a reaction to a failure.
var nanoModelLanguages = map[string]bool{
	"lv": true,
	"et": true,
	"lt": true,
	"sk": true,
	"sl": true,
	"hr": true,
	"bg": true,
}

// AssemblyAIProvider transcribes audio through the asynchronous
// upload-and-poll workflow: push the raw bytes to the upload endpoint,
// submit a transcription job for the returned resource URL, then poll the
// job status until it completes, fails or the attempt budget runs out.
type AssemblyAIProvider struct {
	apiKey          string
	baseURL         string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
}

// NewAssemblyAIProvider creates an upload-and-poll provider.
func NewAssemblyAIProvider(apiKey string, pollInterval time.Duration, maxPollAttempts int) *AssemblyAIProvider {
	return &AssemblyAIProvider{
		apiKey:          apiKey,
		baseURL:         defaultAssemblyAIBaseURL,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
	}
}

// Name implements Provider.
func (p *AssemblyAIProvider) Name() string {
	return "AssemblyAI"
}

// Transcribe implements Provider.
func (p *AssemblyAIProvider) Transcribe(ctx context.Context, asset *audio.Asset, languageHint string) (*Result, error) {
	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return nil, wrapError(CategoryAssetUnavailable, err, "reading audio asset")
	}

	if len(data) == 0 {
		return nil, newError(CategoryBadRequest, "audio file is empty (0 bytes)")
	}
	if len(data) > assemblyAIMaxPayload {
		return nil, newError(CategoryBadRequest, "audio file exceeds the %d MB provider limit", assemblyAIMaxPayload/(1024*1024))
	}
	if len(data) < tinyPayloadBytes {
		logging.LogWarn("Suspiciously small audio payload",
			zap.Int("bytes", len(data)),
			zap.String("path", asset.Path))
	}

	headerLen := 12
	if len(data) < headerLen {
		headerLen = len(data)
	}
	logging.LogTranscription(p.Name(), "preflight",
		zap.Int("bytes", len(data)),
		zap.String("container", string(audio.DetectFormat(data[:headerLen]))))

	resourceURL, err := p.upload(ctx, data)
	if err != nil {
		return nil, err
	}

	job, err := p.submit(ctx, resourceURL, languageHint)
	if err != nil {
		return nil, err
	}

	return p.awaitCompletion(ctx, job, p.pollInterval, p.maxPollAttempts)
}

// upload pushes the raw audio bytes to the upload endpoint and returns the
// remote resource URL. A success response without a resource URL is a
// protocol violation, not something worth retrying.
func (p *AssemblyAIProvider) upload(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/upload", bytes.NewReader(data))
	if err != nil {
		return "", wrapError(CategoryUpload, err, "creating upload request")
	}
	req.Header.Set("authorization", p.apiKey)
	req.Header.Set("content-type", "application/octet-stream")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", wrapError(CategoryUpload, err, "upload request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		category := classifyHTTPStatus(resp.StatusCode, string(body), CategoryUpload)
		return "", newError(category, "upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return "", newError(CategoryUpload, "upload returned an empty response body")
	}

	var uploadResp struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return "", wrapError(CategoryUpload, err, "parsing upload response")
	}
	if uploadResp.UploadURL == "" {
		return "", newError(CategoryUpload, "upload did not return a resource URL")
	}

	logging.LogProviderCall(p.Name(), "/v2/upload",
		zap.Int("bytes", len(data)),
		zap.Int64("upload_ms", time.Since(start).Milliseconds()))

	return uploadResp.UploadURL, nil
}

// submit requests transcription of an uploaded resource and returns the
// tracking job. The language-to-model mapping is resolved here, before the
// request goes out.
func (p *AssemblyAIProvider) submit(ctx context.Context, resourceURL, languageHint string) (*Job, error) {
	params := map[string]interface{}{
		"audio_url":   resourceURL,
		"punctuate":   true,
		"format_text": true,
	}

	language := primarySubtag(languageHint)
	if language != "" && language != "auto" {
		params["language_code"] = language
		if nanoModelLanguages[language] {
			params["speech_model"] = "nano"
		}
	} else {
		params["language_detection"] = true
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "encoding submit request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "creating submit request")
	}
	req.Header.Set("authorization", p.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(CategorySubmission, err, "submit request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		category := classifyHTTPStatus(resp.StatusCode, string(body), CategorySubmission)
		return nil, newError(category, "submit failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var submitResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &submitResp); err != nil {
		return nil, wrapError(CategorySubmission, err, "parsing submit response")
	}
	if submitResp.ID == "" {
		return nil, newError(CategorySubmission, "transcription service did not return a job id")
	}

	logging.LogProviderCall(p.Name(), "/v2/transcript",
		zap.String("job_id", submitResp.ID),
		zap.String("language", language))

	return &Job{
		RemoteID:    submitResp.ID,
		ResourceURL: resourceURL,
		Status:      JobSubmitted,
	}, nil
}

// awaitCompletion polls the job at a fixed interval until it reaches a
// terminal state or the attempt budget is exhausted. Polls are strictly
// sequential; a non-success status response aborts immediately rather than
// burning further attempts. When the budget runs out, the remote job is
// abandoned and may keep running server-side.
func (p *AssemblyAIProvider) awaitCompletion(ctx context.Context, job *Job, interval time.Duration, maxAttempts int) (*Result, error) {
	for job.PollAttempts < maxAttempts {
		select {
		case <-ctx.Done():
			return nil, wrapError(CategoryTimeout, ctx.Err(), "transcription abandoned")
		case <-time.After(interval):
		}

		job.PollAttempts++

		status, err := p.pollOnce(ctx, job.RemoteID)
		if err != nil {
			return nil, err
		}

		logging.LogTranscription(p.Name(), "poll",
			zap.String("job_id", job.RemoteID),
			zap.String("status", status.Status),
			zap.Int("attempt", job.PollAttempts),
			zap.Int("max_attempts", maxAttempts))

		switch status.Status {
		case "completed":
			job.Status = JobCompleted
			if strings.TrimSpace(status.Text) == "" {
				// A completed job with no text is useless output; report it
				// as a failure, not an empty success.
				return nil, newError(CategoryEmptyResult, "transcription completed with empty text")
			}

			confidence := status.Confidence
			if confidence == 0 {
				confidence = 0.9
			}

			return &Result{
				Success:    true,
				Text:       status.Text,
				Confidence: confidence,
				Provider:   p.Name(),
			}, nil

		case "error":
			job.Status = JobFailed
			return nil, newError(classifyMessage(status.Error), "remote processing failed: %s", status.Error)

		default:
			job.Status = JobProcessing
		}
	}

	return nil, newError(CategoryTimeout, "job %s did not finish within %d polls", job.RemoteID, maxAttempts)
}

type assemblyAIStatus struct {
	Status     string  `json:"status"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// pollOnce performs a single idempotent status read.
func (p *AssemblyAIProvider) pollOnce(ctx context.Context, jobID string) (*assemblyAIStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return nil, wrapError(CategoryStatusCheck, err, "creating status request")
	}
	req.Header.Set("authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(CategoryStatusCheck, err, "status request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		category := classifyHTTPStatus(resp.StatusCode, "", CategoryStatusCheck)
		return nil, newError(category, "status check failed with status %d", resp.StatusCode)
	}

	var status assemblyAIStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, wrapError(CategoryStatusCheck, err, "parsing status response")
	}

	return &status, nil
}

// primarySubtag reduces a language hint like "lv-LV" to "lv".
func primarySubtag(languageHint string) string {
	if languageHint == "" {
		return ""
	}
	return strings.ToLower(strings.SplitN(languageHint, "-", 2)[0])
}

// classifyMessage maps a remote failure message to a category by the
// keywords the service is known to emit.
func classifyMessage(message string) Category {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized"):
		return CategoryUnauthorized
	case strings.Contains(lower, "payment") || strings.Contains(lower, "quota"):
		return CategoryQuotaExceeded
	case strings.Contains(lower, "timeout"):
		return CategoryTimeout
	case strings.Contains(lower, "format") || strings.Contains(lower, "unsupported"):
		return CategoryBadRequest
	default:
		return CategoryUnclassified
	}
}
