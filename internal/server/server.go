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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/api"
	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/auth"
	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/messaging"
	"github.com/dienaslabs/dienas-hub/internal/speech"
	"github.com/dienaslabs/dienas-hub/internal/storage"
	"github.com/dienaslabs/dienas-hub/internal/transcription"
)

// Server wires the storage, transcription pipeline and HTTP API together.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	db           *storage.Database
	sessions     *auth.Sessions
	hub          *speech.RuntimeHub
	orchestrator *transcription.Orchestrator
	nats         *messaging.NATSService

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a fully wired server. The database is opened and migrated
// here; NATS connects lazily in Start so a missing broker does not block
// construction.
func New(cfg *config.Config) (*Server, error) {
	db, err := storage.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := speech.NewRuntimeHub()
	orchestrator := transcription.NewOrchestrator(cfg, hub)
	nats := messaging.NewNATSService(cfg.NATS)

	users := storage.NewUserStore(db)
	sessions := auth.NewSessions(users, cfg.Server.SessionTTL)

	s := &Server{
		cfg:          cfg,
		mux:          http.NewServeMux(),
		db:           db,
		sessions:     sessions,
		hub:          hub,
		orchestrator: orchestrator,
		nats:         nats,
		ctx:          ctx,
		cancel:       cancel,
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes(users)
	return s, nil
}

func (s *Server) routes(users *storage.UserStore) {
	analyzer := audio.NewAnalyzer(s.cfg.Audio)
	history := storage.NewTranscriptionEventsStore(s.db)

	authHandler := api.NewAuthHandler(users, s.sessions)
	tasksHandler := api.NewTasksHandler(storage.NewTaskStore(s.db))
	diaryHandler := api.NewDiaryHandler(storage.NewDiaryStore(s.db))
	audioHandler := api.NewAudioHandler(s.cfg.Server.UploadDir, s.orchestrator, analyzer, history, s.nats)
	transcriptionsHandler := api.NewTranscriptionsHandler(history)
	providersHandler := api.NewProvidersHandler(s.orchestrator, s.cfg.Providers, s.cfg.LocalSim.Enabled)

	s.mux.HandleFunc("/api/auth/register", authHandler.HandleRegister)
	s.mux.HandleFunc("/api/auth/login", authHandler.HandleLogin)
	s.mux.HandleFunc("/api/auth/logout", authHandler.HandleLogout)
	s.mux.HandleFunc("/api/auth/me", s.sessions.Require(authHandler.HandleMe))

	s.mux.HandleFunc("/api/tasks", s.sessions.Require(tasksHandler.HandleTasks))
	s.mux.HandleFunc("/api/tasks/", s.sessions.Require(tasksHandler.HandleTaskByID))

	s.mux.HandleFunc("/api/diary", s.sessions.Require(diaryHandler.HandleEntries))
	s.mux.HandleFunc("/api/diary/", s.sessions.Require(diaryHandler.HandleEntryByID))

	s.mux.HandleFunc("/api/audio", s.sessions.Require(audioHandler.HandleUpload))

	s.mux.HandleFunc("/api/transcriptions", s.sessions.Require(
		func(w http.ResponseWriter, r *http.Request, user *storage.User) {
			if r.Method == http.MethodPost {
				audioHandler.HandleTranscribe(w, r, user)
				return
			}
			transcriptionsHandler.HandleList(w, r, user)
		}))
	s.mux.HandleFunc("/api/transcriptions/", s.sessions.Require(transcriptionsHandler.HandleByUUID))

	s.mux.HandleFunc("/api/providers", providersHandler.HandleList)
	s.mux.HandleFunc("/api/providers/test", providersHandler.HandleTest)

	s.mux.HandleFunc("/ws/speech", s.hub.HandleWebSocket)

	s.mux.HandleFunc("/health", s.handleHealth)
}

// Start connects optional services and serves HTTP until Stop.
func (s *Server) Start() error {
	if err := s.nats.Connect(); err != nil {
		// Messaging is optional; transcription works without it.
		logging.LogWarn("NATS unavailable, events will not be published", zap.Error(err))
	} else if err := s.nats.PublishSystemEvent("startup", "dienas-hub started"); err != nil {
		logging.LogWarn("Failed to publish startup event", zap.Error(err))
	}

	go s.sessionJanitor()

	logging.LogInfo("Dienas hub starting",
		zap.String("addr", s.server.Addr),
		zap.String("upload_dir", s.cfg.Server.UploadDir),
		zap.Bool("local_sim", s.cfg.LocalSim.Enabled))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully and closes its resources.
func (s *Server) Stop() error {
	logging.LogInfo("Shutting down Dienas hub")

	s.cancel()
	s.hub.Close()
	s.orchestrator.Close()

	if err := s.nats.PublishSystemEvent("shutdown", "dienas-hub stopping"); err != nil {
		logging.LogWarn("Failed to publish shutdown event", zap.Error(err))
	}
	s.nats.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("database close failed: %w", err)
	}

	logging.LogInfo("Dienas hub shut down")
	return nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// sessionJanitor removes expired sessions periodically.
func (s *Server) sessionJanitor() {
	users := storage.NewUserStore(s.db)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := users.DeleteExpiredSessions(); err != nil {
				logging.LogError(err, "Session cleanup failed")
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"status":             "healthy",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"database":           s.db.Path(),
		"speech_runtime":     s.hub.Available(),
		"ondevice_supported": s.orchestrator.OnDeviceSupported(),
		"messaging":          s.nats.Enabled(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.LogError(err, "Failed to encode health response")
	}
}
