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

package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/events"
	"github.com/dienaslabs/dienas-hub/internal/logging"
)

// ListOptions controls pagination and filtering of transcription history.
type ListOptions struct {
	UserID   int64
	Provider string
	// OnlyFailed narrows the result to failed attempts.
	OnlyFailed bool
	Limit      int
	Offset     int
}

// TranscriptionEventsStore handles database operations for transcription
// history.
type TranscriptionEventsStore struct {
	db *Database
}

// NewTranscriptionEventsStore creates a transcription events store.
func NewTranscriptionEventsStore(db *Database) *TranscriptionEventsStore {
	return &TranscriptionEventsStore{db: db}
}

// Insert stores a transcription event.
func (s *TranscriptionEventsStore) Insert(event *events.TranscriptionEvent) error {
	_, err := s.db.DB().Exec(
		`INSERT INTO transcription_events (
			uuid, user_id, timestamp,
			audio_hash, audio_path, file_size, estimated_duration, quality_tier,
			provider, language, text, confidence,
			success, error_message, processing_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.UUID, event.UserID, event.Timestamp,
		event.AudioHash, event.AudioPath, event.FileSize, event.EstimatedDuration, event.QualityTier,
		event.Provider, event.Language, event.Text, event.Confidence,
		event.Success, event.ErrorMessage, event.ProcessingTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcription event: %w", err)
	}

	logging.LogDatabaseOperation("insert", "transcription_events",
		zap.String("uuid", event.UUID),
		zap.String("provider", event.Provider),
		zap.Bool("success", event.Success))
	return nil
}

// GetByUUID fetches one event.
func (s *TranscriptionEventsStore) GetByUUID(uuid string) (*events.TranscriptionEvent, error) {
	row := s.db.DB().QueryRow(
		`SELECT uuid, user_id, timestamp,
		        audio_hash, audio_path, file_size, estimated_duration, quality_tier,
		        provider, language, text, confidence,
		        success, error_message, processing_time_ms
		 FROM transcription_events WHERE uuid = ?`, uuid)

	var e events.TranscriptionEvent
	err := row.Scan(&e.UUID, &e.UserID, &e.Timestamp,
		&e.AudioHash, &e.AudioPath, &e.FileSize, &e.EstimatedDuration, &e.QualityTier,
		&e.Provider, &e.Language, &e.Text, &e.Confidence,
		&e.Success, &e.ErrorMessage, &e.ProcessingTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcription event: %w", err)
	}
	return &e, nil
}

// List returns events matching the options, newest first.
func (s *TranscriptionEventsStore) List(options ListOptions) ([]*events.TranscriptionEvent, error) {
	query := `SELECT uuid, user_id, timestamp,
	                 audio_hash, audio_path, file_size, estimated_duration, quality_tier,
	                 provider, language, text, confidence,
	                 success, error_message, processing_time_ms
	          FROM transcription_events WHERE user_id = ?`
	args := []interface{}{options.UserID}

	if options.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, options.Provider)
	}
	if options.OnlyFailed {
		query += ` AND success = 0`
	}

	query += ` ORDER BY timestamp DESC`

	limit := options.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, options.Offset)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcription events: %w", err)
	}
	defer rows.Close()

	var list []*events.TranscriptionEvent
	for rows.Next() {
		var e events.TranscriptionEvent
		if err := rows.Scan(&e.UUID, &e.UserID, &e.Timestamp,
			&e.AudioHash, &e.AudioPath, &e.FileSize, &e.EstimatedDuration, &e.QualityTier,
			&e.Provider, &e.Language, &e.Text, &e.Confidence,
			&e.Success, &e.ErrorMessage, &e.ProcessingTime); err != nil {
			return nil, fmt.Errorf("failed to scan transcription event: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// Count returns the number of events matching the options.
func (s *TranscriptionEventsStore) Count(options ListOptions) (int64, error) {
	query := `SELECT COUNT(*) FROM transcription_events WHERE user_id = ?`
	args := []interface{}{options.UserID}

	if options.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, options.Provider)
	}
	if options.OnlyFailed {
		query += ` AND success = 0`
	}

	var count int64
	if err := s.db.DB().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transcription events: %w", err)
	}
	return count, nil
}
