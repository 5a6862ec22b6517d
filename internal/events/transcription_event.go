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

package events

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TranscriptionEvent records one transcription attempt end to end, from the
// uploaded recording through the provider outcome. Events are persisted for
// history views and published for any listener that wants to react to new
// transcripts.
type TranscriptionEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Audio metadata
	AudioHash         string  `json:"audio_hash" db:"audio_hash"`
	AudioPath         string  `json:"audio_path" db:"audio_path"`
	FileSize          int64   `json:"file_size" db:"file_size"`
	EstimatedDuration float64 `json:"estimated_duration" db:"estimated_duration"`
	QualityTier       string  `json:"quality_tier" db:"quality_tier"`

	// Transcription results
	Provider   string  `json:"provider" db:"provider"`
	Language   string  `json:"language" db:"language"`
	Text       string  `json:"text" db:"text"`
	Confidence float64 `json:"confidence" db:"confidence"`

	// Outcome
	Success        bool     `json:"success" db:"success"`
	ErrorMessage   string   `json:"error_message,omitempty" db:"error_message"`
	Warnings       []string `json:"warnings,omitempty" db:"-"`
	ProcessingTime int64    `json:"processing_time_ms" db:"processing_time_ms"`
}

// NewTranscriptionEvent creates an event with a generated UUID and the
// current timestamp.
func NewTranscriptionEvent(userID int64, audioPath string) *TranscriptionEvent {
	return &TranscriptionEvent{
		UUID:      uuid.New().String(),
		UserID:    userID,
		AudioPath: audioPath,
		Timestamp: time.Now(),
		Success:   true,
	}
}

// SetAudioMetadata records the analyzed audio characteristics and a content
// hash for duplicate detection.
func (te *TranscriptionEvent) SetAudioMetadata(data []byte, estimatedDuration float64, qualityTier string) {
	sum := sha256.Sum256(data)
	te.AudioHash = hex.EncodeToString(sum[:])
	te.FileSize = int64(len(data))
	te.EstimatedDuration = estimatedDuration
	te.QualityTier = qualityTier
}

// SetResult records the provider outcome and closes the processing timer.
func (te *TranscriptionEvent) SetResult(provider, language, text string, confidence float64, warnings []string) {
	te.Provider = provider
	te.Language = language
	te.Text = text
	te.Confidence = confidence
	te.Warnings = warnings
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// SetError marks the event as failed and closes the processing timer.
func (te *TranscriptionEvent) SetError(provider, message string) {
	te.Provider = provider
	te.Success = false
	te.ErrorMessage = message
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}
