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
	"context"
	"net/http"
	"time"

	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/transcription"
)

// ProvidersHandler reports provider availability and runs connection tests.
type ProvidersHandler struct {
	orchestrator *transcription.Orchestrator
	cfg          config.ProvidersConfig
	localSim     bool
}

// NewProvidersHandler creates a providers handler.
func NewProvidersHandler(orchestrator *transcription.Orchestrator, cfg config.ProvidersConfig, localSim bool) *ProvidersHandler {
	return &ProvidersHandler{orchestrator: orchestrator, cfg: cfg, localSim: localSim}
}

type providerStatus struct {
	ID        string `json:"id"`
	Priority  int    `json:"priority"`
	Available bool   `json:"available"`
}

type providersResponse struct {
	Providers         []providerStatus `json:"providers"`
	OnDeviceSupported bool             `json:"ondevice_supported"`
	LocalSimEnabled   bool             `json:"local_sim_enabled"`
	DefaultLanguage   string           `json:"default_language"`
}

// HandleList handles GET /api/providers. Credentials never leave the
// server; only availability does.
func (h *ProvidersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	descriptors := h.orchestrator.Registry().ListByPriority()
	statuses := make([]providerStatus, 0, len(descriptors))
	for _, d := range descriptors {
		statuses = append(statuses, providerStatus{
			ID:        string(d.ID),
			Priority:  d.Priority,
			Available: d.Available(),
		})
	}

	writeJSON(w, http.StatusOK, providersResponse{
		Providers:         statuses,
		OnDeviceSupported: h.orchestrator.OnDeviceSupported(),
		LocalSimEnabled:   h.localSim,
		DefaultLanguage:   h.cfg.Language,
	})
}

// HandleTest handles POST /api/providers/test. It runs the slow end-to-end
// connection probe against the upload-and-poll provider.
func (h *ProvidersHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.cfg.AssemblyAIKey == "" {
		writeError(w, http.StatusBadRequest, "no AssemblyAI credential configured")
		return
	}

	provider := transcription.NewAssemblyAIProvider(
		h.cfg.AssemblyAIKey, h.cfg.PollInterval, h.cfg.MaxPollRetries)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	report := transcription.NewConnectionTester(provider).Run(ctx)
	writeJSON(w, http.StatusOK, report)
}
