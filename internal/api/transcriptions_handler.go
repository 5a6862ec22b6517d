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
	"errors"
	"net/http"
	"strconv"

	"github.com/dienaslabs/dienas-hub/internal/events"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/storage"
)

// TranscriptionsHandler serves transcription history.
type TranscriptionsHandler struct {
	history *storage.TranscriptionEventsStore
}

// NewTranscriptionsHandler creates a transcriptions handler.
func NewTranscriptionsHandler(history *storage.TranscriptionEventsStore) *TranscriptionsHandler {
	return &TranscriptionsHandler{history: history}
}

type listTranscriptionsResponse struct {
	Events   []*events.TranscriptionEvent `json:"events"`
	Total    int64                        `json:"total"`
	Page     int                          `json:"page"`
	PageSize int                          `json:"page_size"`
}

// HandleList handles GET /api/transcriptions with ?page=, ?page_size=,
// ?provider= and ?failed= filters.
func (h *TranscriptionsHandler) HandleList(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	options := storage.ListOptions{
		UserID:     user.ID,
		Provider:   r.URL.Query().Get("provider"),
		OnlyFailed: r.URL.Query().Get("failed") == "true",
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}

	list, err := h.history.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list transcription events")
		writeError(w, http.StatusInternalServerError, "failed to list transcriptions")
		return
	}
	if list == nil {
		list = []*events.TranscriptionEvent{}
	}

	total, err := h.history.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count transcription events")
		writeError(w, http.StatusInternalServerError, "failed to list transcriptions")
		return
	}

	writeJSON(w, http.StatusOK, listTranscriptionsResponse{
		Events:   list,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// HandleByUUID handles GET /api/transcriptions/{uuid}.
func (h *TranscriptionsHandler) HandleByUUID(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	eventUUID, ok := pathSuffix(r.URL.Path, "/api/transcriptions")
	if !ok {
		writeError(w, http.StatusBadRequest, "transcription uuid is required")
		return
	}

	event, err := h.history.GetByUUID(eventUUID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcription not found")
		return
	}
	if err != nil {
		logging.LogError(err, "Failed to fetch transcription event")
		writeError(w, http.StatusInternalServerError, "failed to fetch transcription")
		return
	}

	// History rows are private to their owner.
	if event.UserID != user.ID {
		writeError(w, http.StatusNotFound, "transcription not found")
		return
	}

	writeJSON(w, http.StatusOK, event)
}
