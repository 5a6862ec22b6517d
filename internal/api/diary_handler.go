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

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/security"
	"github.com/dienaslabs/dienas-hub/internal/storage"
)

// DiaryHandler handles diary entry CRUD.
type DiaryHandler struct {
	diary *storage.DiaryStore
}

// NewDiaryHandler creates a diary handler.
func NewDiaryHandler(diary *storage.DiaryStore) *DiaryHandler {
	return &DiaryHandler{diary: diary}
}

type diaryRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	EntryDate string   `json:"entry_date"` // YYYY-MM-DD
	AudioPath string   `json:"audio_path,omitempty"`
	Tags      []string `json:"tags"`
}

// HandleEntries handles GET and POST /api/diary. GET accepts an optional
// ?tag= filter.
func (h *DiaryHandler) HandleEntries(w http.ResponseWriter, r *http.Request, user *storage.User) {
	switch r.Method {
	case http.MethodGet:
		entries, err := h.diary.List(user.ID, r.URL.Query().Get("tag"))
		if err != nil {
			logging.LogError(err, "Failed to list diary entries")
			writeError(w, http.StatusInternalServerError, "failed to list entries")
			return
		}
		if entries == nil {
			entries = []*storage.DiaryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)

	case http.MethodPost:
		req, ok := decodeDiaryRequest(w, r)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		entryDate, ok := normalizeEntryDate(w, req.EntryDate)
		if !ok {
			return
		}

		created, err := h.diary.Create(&storage.DiaryEntry{
			UserID:    user.ID,
			Title:     strings.TrimSpace(req.Title),
			Content:   req.Content,
			EntryDate: entryDate,
			AudioPath: req.AudioPath,
			Tags:      normalizeTags(req.Tags),
		})
		if err != nil {
			logging.LogError(err, "Failed to create diary entry")
			writeError(w, http.StatusInternalServerError, "failed to create entry")
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleEntryByID handles GET, PUT and DELETE /api/diary/{id}.
func (h *DiaryHandler) HandleEntryByID(w http.ResponseWriter, r *http.Request, user *storage.User) {
	id, ok := pathID(r.URL.Path, "/api/diary")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		entry, err := h.diary.Get(user.ID, id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		if err != nil {
			logging.LogError(err, "Failed to fetch diary entry")
			writeError(w, http.StatusInternalServerError, "failed to fetch entry")
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case http.MethodPut:
		req, ok := decodeDiaryRequest(w, r)
		if !ok {
			return
		}

		entry, err := h.diary.Get(user.ID, id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		if err != nil {
			logging.LogError(err, "Failed to fetch diary entry")
			writeError(w, http.StatusInternalServerError, "failed to update entry")
			return
		}

		if req.Title != "" {
			entry.Title = strings.TrimSpace(req.Title)
		}
		if req.Content != "" {
			entry.Content = req.Content
		}
		if req.EntryDate != "" {
			entryDate, ok := normalizeEntryDate(w, req.EntryDate)
			if !ok {
				return
			}
			entry.EntryDate = entryDate
		}
		if req.AudioPath != "" {
			entry.AudioPath = req.AudioPath
		}
		if req.Tags != nil {
			entry.Tags = normalizeTags(req.Tags)
		}

		updated, err := h.diary.Update(entry)
		if err != nil {
			logging.LogError(err, "Failed to update diary entry")
			writeError(w, http.StatusInternalServerError, "failed to update entry")
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		err := h.diary.Delete(user.ID, id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		if err != nil {
			logging.LogError(err, "Failed to delete diary entry")
			writeError(w, http.StatusInternalServerError, "failed to delete entry")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func decodeDiaryRequest(w http.ResponseWriter, r *http.Request) (*diaryRequest, bool) {
	var req diaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

// normalizeEntryDate validates the date or defaults it to today.
func normalizeEntryDate(w http.ResponseWriter, value string) (string, bool) {
	if value == "" {
		return time.Now().Format("2006-01-02"), true
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		writeError(w, http.StatusBadRequest, "entry_date must be YYYY-MM-DD")
		return "", false
	}
	return value, true
}

// normalizeTags lowercases, dedupes and drops tags that fail validation.
// Tags reach tag-scoped queries and logs, so unsafe characters are
// rejected rather than escaped.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		if err := security.ValidateTag(tag); err != nil {
			logging.LogWarn("Dropping invalid diary tag", zap.String("tag", security.SanitizeLogInput(tag)))
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
