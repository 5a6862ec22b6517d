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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/events"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/messaging"
	"github.com/dienaslabs/dienas-hub/internal/security"
	"github.com/dienaslabs/dienas-hub/internal/storage"
	"github.com/dienaslabs/dienas-hub/internal/transcription"
)

// maxUploadBytes caps a single audio upload.
const maxUploadBytes = 10 * 1024 * 1024

// allowedUploadTypes maps accepted MIME types to storage extensions.
var allowedUploadTypes = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/wav":  ".wav",
	"audio/webm": ".webm",
	"audio/ogg":  ".ogg",
}

// uploadFormats maps accepted MIME types to the container the stored bytes
// must actually sniff as. The declared Content-Type is client input.
var uploadFormats = map[string]audio.Format{
	"audio/mpeg": audio.FormatMP3,
	"audio/mp4":  audio.FormatMP4,
	"audio/wav":  audio.FormatWAV,
	"audio/webm": audio.FormatWebM,
	"audio/ogg":  audio.FormatOgg,
}

// AudioHandler stores uploaded recordings and runs them through the
// transcription pipeline.
type AudioHandler struct {
	uploadDir    string
	orchestrator *transcription.Orchestrator
	analyzer     *audio.Analyzer
	history      *storage.TranscriptionEventsStore
	nats         *messaging.NATSService
}

// NewAudioHandler creates an audio upload handler.
func NewAudioHandler(
	uploadDir string,
	orchestrator *transcription.Orchestrator,
	analyzer *audio.Analyzer,
	history *storage.TranscriptionEventsStore,
	nats *messaging.NATSService,
) *AudioHandler {
	return &AudioHandler{
		uploadDir:    uploadDir,
		orchestrator: orchestrator,
		analyzer:     analyzer,
		history:      history,
		nats:         nats,
	}
}

type uploadResponse struct {
	Path          string                `json:"path"`
	Size          int64                 `json:"size"`
	Transcription *transcription.Result `json:"transcription,omitempty"`
	EventUUID     string                `json:"event_uuid,omitempty"`
}

// HandleUpload handles POST /api/audio. The multipart field "audio" carries
// the recording; unless ?transcribe=false the stored file is transcribed
// synchronously and the outcome recorded.
func (h *AudioHandler) HandleUpload(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "audio upload exceeds the 10 MB limit")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"audio\" is required")
		return
	}
	defer file.Close()

	mimeType := strings.ToLower(strings.SplitN(header.Header.Get("Content-Type"), ";", 2)[0])
	ext, allowed := allowedUploadTypes[mimeType]
	if !allowed {
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported audio type %q", mimeType))
		return
	}

	storedPath, size, err := h.store(file, user.ID, ext)
	if err != nil {
		logging.LogError(err, "Failed to store audio upload", zap.Int64("user_id", user.ID))
		writeError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	if format := h.sniffStored(storedPath); format != uploadFormats[mimeType] {
		os.Remove(storedPath)
		logging.LogWarn("Audio upload payload mismatch",
			zap.Int64("user_id", user.ID),
			zap.String("declared", security.SanitizeLogInput(mimeType)),
			zap.String("sniffed", string(format)))
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("audio payload does not look like %s", mimeType))
		return
	}

	logging.LogInfo("Audio upload stored",
		zap.Int64("user_id", user.ID),
		zap.String("path", storedPath),
		zap.Int64("bytes", size),
		zap.String("mime_type", security.SanitizeLogInput(mimeType)),
		zap.String("original_name", security.SanitizeLogInput(header.Filename)))

	resp := uploadResponse{Path: storedPath, Size: size}

	if r.URL.Query().Get("transcribe") != "false" {
		result, eventUUID := h.transcribe(r.Context(), user, storedPath,
			r.URL.Query().Get("language"), r.URL.Query().Get("provider"))
		resp.Transcription = result
		resp.EventUUID = eventUUID
	}

	writeJSON(w, http.StatusCreated, resp)
}

type transcribeRequest struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// HandleTranscribe handles POST /api/transcriptions: runs the pipeline on a
// previously uploaded recording, recording a fresh history event.
func (h *AudioHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	path, err := h.resolveUserPath(user.ID, req.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	result, eventUUID := h.transcribe(r.Context(), user, path, req.Language, req.Provider)
	writeJSON(w, http.StatusOK, uploadResponse{
		Path:          path,
		Transcription: result,
		EventUUID:     eventUUID,
	})
}

// sniffStored classifies the stored file by its magic bytes. Any read error
// degrades to FormatUnknown, which never matches an accepted type.
func (h *AudioHandler) sniffStored(path string) audio.Format {
	asset, err := audio.NewAsset(path)
	if err != nil {
		return audio.FormatUnknown
	}
	format, err := asset.SniffFormat()
	if err != nil {
		return audio.FormatUnknown
	}
	return format
}

// resolveUserPath confines a client-supplied path to the caller's own
// upload directory and requires the file to exist.
func (h *AudioHandler) resolveUserPath(userID int64, raw string) (string, error) {
	userDir := filepath.Join(h.uploadDir, fmt.Sprintf("user_%d", userID))
	path := filepath.Clean(raw)
	if !strings.HasPrefix(path, userDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q outside upload directory", security.SanitizeLogInput(raw))
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// store writes the upload into the user's directory under a unique name.
func (h *AudioHandler) store(file io.Reader, userID int64, ext string) (string, int64, error) {
	userDir := filepath.Join(h.uploadDir, fmt.Sprintf("user_%d", userID))
	if err := os.MkdirAll(userDir, 0750); err != nil {
		return "", 0, fmt.Errorf("creating upload directory: %w", err)
	}

	name := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String(), ext)
	path := filepath.Join(userDir, name)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return "", 0, fmt.Errorf("creating upload file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, file)
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("writing upload file: %w", err)
	}

	return path, size, nil
}

// transcribe runs the stored file through the pipeline and records the
// attempt. History and messaging failures are logged, never surfaced; the
// transcription result is the payload the user cares about.
func (h *AudioHandler) transcribe(ctx context.Context, user *storage.User, storedPath, language, provider string) (*transcription.Result, string) {
	event := events.NewTranscriptionEvent(user.ID, storedPath)

	if data, err := os.ReadFile(storedPath); err == nil {
		asset, assetErr := audio.NewAsset(storedPath)
		if assetErr == nil {
			if report, reportErr := h.analyzer.Analyze(asset); reportErr == nil {
				event.SetAudioMetadata(data, report.EstimatedDuration, string(report.Tier))
			} else {
				event.SetAudioMetadata(data, 0, "")
			}
		} else {
			event.SetAudioMetadata(data, 0, "")
		}
	}

	result := h.orchestrator.Transcribe(ctx, transcription.Request{
		AudioPath: storedPath,
		Language:  language,
		Preferred: transcription.ProviderID(provider),
	})

	if result.Success {
		event.SetResult(result.Provider, language, result.Text, result.Confidence, result.Warnings)
	} else {
		event.SetError(result.Provider, result.ErrorMessage)
	}

	if err := h.history.Insert(event); err != nil {
		logging.LogError(err, "Failed to record transcription event", zap.String("uuid", event.UUID))
	}
	if err := h.nats.PublishTranscription(event); err != nil {
		logging.LogError(err, "Failed to publish transcription event", zap.String("uuid", event.UUID))
	}

	return result, event.UUID
}
