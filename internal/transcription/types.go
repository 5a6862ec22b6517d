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

// Package transcription implements the speech-to-text orchestration pipeline:
// provider selection, the upload-and-poll and single-round-trip provider
// implementations, result normalization and graceful degradation.
package transcription

import (
	"context"

	"github.com/dienaslabs/dienas-hub/internal/audio"
)

// Result is the single normalized contract every provider produces. Exactly
// one of the two shapes holds: Success with non-empty Text, or !Success with
// a non-empty ErrorMessage. A Result is immutable once returned.
type Result struct {
	Success      bool     `json:"success"`
	Text         string   `json:"text,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
	Provider     string   `json:"provider"`
	ErrorMessage string   `json:"error,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// JobStatus is the lifecycle state of an asynchronous transcription job.
type JobStatus string

const (
	JobSubmitted  JobStatus = "submitted"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one upload-and-poll transcription. Each Transcribe call owns
// its own Job; nothing is shared between concurrent requests.
type Job struct {
	RemoteID     string
	ResourceURL  string
	Status       JobStatus
	PollAttempts int
}

// Provider is the contract every transcription backend implements. On
// failure, implementations return a *transcription.Error carrying the
// failure category; they never return a Result with Success=false themselves
// (the orchestrator owns that normalization).
type Provider interface {
	// Name is the user-facing provider label attached to results.
	Name() string

	// Transcribe converts the recorded asset to text. languageHint is an
	// IETF-ish language code ("lv", "en-US") or empty for auto-detection.
	Transcribe(ctx context.Context, asset *audio.Asset, languageHint string) (*Result, error)
}
