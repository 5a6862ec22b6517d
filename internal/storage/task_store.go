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

// Task is a planner task row.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskStore handles database operations for planner tasks.
type TaskStore struct {
	db *Database
}

// NewTaskStore creates a task store.
func NewTaskStore(db *Database) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new task for the user.
func (s *TaskStore) Create(task *Task) (*Task, error) {
	result, err := s.db.DB().Exec(
		`INSERT INTO tasks (user_id, title, description, due_date) VALUES (?, ?, ?, ?)`,
		task.UserID, task.Title, task.Description, task.DueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted task id: %w", err)
	}

	return s.Get(task.UserID, id)
}

// Get fetches one of the user's tasks.
func (s *TaskStore) Get(userID, id int64) (*Task, error) {
	row := s.db.DB().QueryRow(
		`SELECT id, user_id, title, description, due_date, completed, created_at, updated_at
		 FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	return scanTask(row)
}

// List returns the user's tasks, incomplete first, then by due date.
func (s *TaskStore) List(userID int64) ([]*Task, error) {
	rows, err := s.db.DB().Query(
		`SELECT id, user_id, title, description, due_date, completed, created_at, updated_at
		 FROM tasks WHERE user_id = ?
		 ORDER BY completed ASC, due_date IS NULL, due_date ASC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate,
			&t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

// Update rewrites the mutable task fields.
func (s *TaskStore) Update(task *Task) (*Task, error) {
	result, err := s.db.DB().Exec(
		`UPDATE tasks SET title = ?, description = ?, due_date = ?, completed = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.DueDate, task.Completed, task.ID, task.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(task.UserID, task.ID)
}

// Delete removes one of the user's tasks.
func (s *TaskStore) Delete(userID, id int64) error {
	result, err := s.db.DB().Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate,
		&t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}
