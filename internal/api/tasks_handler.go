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

	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/storage"
)

// TasksHandler handles planner task CRUD.
type TasksHandler struct {
	tasks *storage.TaskStore
}

// NewTasksHandler creates a tasks handler.
func NewTasksHandler(tasks *storage.TaskStore) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"` // RFC 3339
	Completed   *bool  `json:"completed,omitempty"`
}

// HandleTasks handles GET and POST /api/tasks.
func (h *TasksHandler) HandleTasks(w http.ResponseWriter, r *http.Request, user *storage.User) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.tasks.List(user.ID)
		if err != nil {
			logging.LogError(err, "Failed to list tasks")
			writeError(w, http.StatusInternalServerError, "failed to list tasks")
			return
		}
		if list == nil {
			list = []*storage.Task{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		req, ok := decodeTaskRequest(w, r)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}

		task := &storage.Task{
			UserID:      user.ID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
		}
		if due, ok := parseDueDate(w, req.DueDate); ok {
			task.DueDate = due
		} else {
			return
		}

		created, err := h.tasks.Create(task)
		if err != nil {
			logging.LogError(err, "Failed to create task")
			writeError(w, http.StatusInternalServerError, "failed to create task")
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleTaskByID handles GET, PUT and DELETE /api/tasks/{id}.
func (h *TasksHandler) HandleTaskByID(w http.ResponseWriter, r *http.Request, user *storage.User) {
	id, ok := pathID(r.URL.Path, "/api/tasks")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, err := h.tasks.Get(user.ID, id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		if err != nil {
			logging.LogError(err, "Failed to fetch task")
			writeError(w, http.StatusInternalServerError, "failed to fetch task")
			return
		}
		writeJSON(w, http.StatusOK, task)

	case http.MethodPut:
		req, ok := decodeTaskRequest(w, r)
		if !ok {
			return
		}

		task, err := h.tasks.Get(user.ID, id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		if err != nil {
			logging.LogError(err, "Failed to fetch task")
			writeError(w, http.StatusInternalServerError, "failed to update task")
			return
		}

		if req.Title != "" {
			task.Title = strings.TrimSpace(req.Title)
		}
		if req.Description != "" {
			task.Description = req.Description
		}
		if req.Completed != nil {
			task.Completed = *req.Completed
		}
		if req.DueDate != "" {
			if due, ok := parseDueDate(w, req.DueDate); ok {
				task.DueDate = due
			} else {
				return
			}
		}

		updated, err := h.tasks.Update(task)
		if err != nil {
			logging.LogError(err, "Failed to update task")
			writeError(w, http.StatusInternalServerError, "failed to update task")
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		err := h.tasks.Delete(user.ID, id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		if err != nil {
			logging.LogError(err, "Failed to delete task")
			writeError(w, http.StatusInternalServerError, "failed to delete task")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func decodeTaskRequest(w http.ResponseWriter, r *http.Request) (*taskRequest, bool) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

func parseDueDate(w http.ResponseWriter, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	due, err := time.Parse(time.RFC3339, value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be RFC 3339")
		return nil, false
	}
	return &due, true
}
