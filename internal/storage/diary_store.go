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
	"time"
)

// DiaryEntry is a diary row with its tags.
type DiaryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	EntryDate string    `json:"entry_date"` // YYYY-MM-DD
	AudioPath string    `json:"audio_path,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiaryStore handles database operations for diary entries and their tags.
type DiaryStore struct {
	db *Database
}

// NewDiaryStore creates a diary store.
func NewDiaryStore(db *Database) *DiaryStore {
	return &DiaryStore{db: db}
}

// Create inserts an entry and its tags in one transaction.
func (s *DiaryStore) Create(entry *DiaryEntry) (*DiaryEntry, error) {
	tx, err := s.db.DB().Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO diary_entries (user_id, title, content, entry_date, audio_path)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.UserID, entry.Title, entry.Content, entry.EntryDate, entry.AudioPath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert diary entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted entry id: %w", err)
	}

	if err := replaceTags(tx, id, entry.Tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit diary entry: %w", err)
	}

	return s.Get(entry.UserID, id)
}

// Get fetches one of the user's entries with its tags.
func (s *DiaryStore) Get(userID, id int64) (*DiaryEntry, error) {
	row := s.db.DB().QueryRow(
		`SELECT id, user_id, title, content, entry_date, audio_path, created_at, updated_at
		 FROM diary_entries WHERE id = ? AND user_id = ?`, id, userID)

	entry, err := scanDiaryEntry(row)
	if err != nil {
		return nil, err
	}

	entry.Tags, err = s.tagsFor(id)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the user's entries, newest date first, optionally filtered
// by tag.
func (s *DiaryStore) List(userID int64, tag string) ([]*DiaryEntry, error) {
	query := `SELECT id, user_id, title, content, entry_date, audio_path, created_at, updated_at
	          FROM diary_entries WHERE user_id = ?`
	args := []interface{}{userID}

	if tag != "" {
		query += ` AND id IN (SELECT entry_id FROM diary_entry_tags WHERE tag = ?)`
		args = append(args, tag)
	}
	query += ` ORDER BY entry_date DESC, id DESC`

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query diary entries: %w", err)
	}
	defer rows.Close()

	var entries []*DiaryEntry
	for rows.Next() {
		var e DiaryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.EntryDate,
			&e.AudioPath, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diary entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.Tags, err = s.tagsFor(e.ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Update rewrites the entry and replaces its tag set.
func (s *DiaryStore) Update(entry *DiaryEntry) (*DiaryEntry, error) {
	tx, err := s.db.DB().Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE diary_entries SET title = ?, content = ?, entry_date = ?, audio_path = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		entry.Title, entry.Content, entry.EntryDate, entry.AudioPath, entry.ID, entry.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update diary entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := replaceTags(tx, entry.ID, entry.Tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit diary update: %w", err)
	}

	return s.Get(entry.UserID, entry.ID)
}

// Delete removes one of the user's entries; tags cascade.
func (s *DiaryStore) Delete(userID, id int64) error {
	result, err := s.db.DB().Exec(
		`DELETE FROM diary_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete diary entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DiaryStore) tagsFor(entryID int64) ([]string, error) {
	rows, err := s.db.DB().Query(
		`SELECT tag FROM diary_entry_tags WHERE entry_id = ? ORDER BY tag`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func replaceTags(tx *sql.Tx, entryID int64, tags []string) error {
	if _, err := tx.Exec(`DELETE FROM diary_entry_tags WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO diary_entry_tags (entry_id, tag) VALUES (?, ?)`,
			entryID, tag); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}
	return nil
}

func scanDiaryEntry(row *sql.Row) (*DiaryEntry, error) {
	var e DiaryEntry
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.EntryDate,
		&e.AudioPath, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan diary entry: %w", err)
	}
	return &e, nil
}
