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

package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/events"
	"github.com/dienaslabs/dienas-hub/internal/logging"
)

// NATS subjects for the event types the hub publishes
const (
	SubjectTranscriptions = "dienas.transcriptions"
	SubjectSystemEvents   = "dienas.system.events"
)

// SystemEvent is a lightweight operational notification.
type SystemEvent struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NATSService publishes hub events to NATS. Messaging is optional: when no
// URL is configured the service stays disconnected and every publish is a
// silent no-op, so a missing broker never degrades transcription.
type NATSService struct {
	conn *nats.Conn
	cfg  config.NATSConfig
}

// NewNATSService creates a NATS service instance from configuration.
func NewNATSService(cfg config.NATSConfig) *NATSService {
	return &NATSService{cfg: cfg}
}

// Enabled reports whether a broker URL is configured.
func (ns *NATSService) Enabled() bool {
	return ns.cfg.URL != ""
}

// Connect establishes the connection to the NATS server with retry
// handlers. Calling Connect on a disabled service is a no-op.
func (ns *NATSService) Connect() error {
	if !ns.Enabled() {
		logging.LogInfo("NATS messaging disabled, no URL configured")
		return nil
	}

	opts := []nats.Option{
		nats.Name("dienas-hub"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogInfo("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.LogInfo("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.LogInfo("Connected to NATS server", zap.String("url", conn.ConnectedUrl()))
	return nil
}

// PublishTranscription publishes a completed transcription event.
func (ns *NATSService) PublishTranscription(event *events.TranscriptionEvent) error {
	if ns.conn == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcription event: %w", err)
	}

	if err := ns.conn.Publish(SubjectTranscriptions, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectTranscriptions, err)
	}

	logging.LogNATSEvent(SubjectTranscriptions, "publish",
		zap.String("uuid", event.UUID),
		zap.String("provider", event.Provider),
		zap.Bool("success", event.Success))
	return nil
}

// PublishSystemEvent publishes an operational notification.
func (ns *NATSService) PublishSystemEvent(kind, message string) error {
	if ns.conn == nil {
		return nil
	}

	data, err := json.Marshal(SystemEvent{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal system event: %w", err)
	}

	if err := ns.conn.Publish(SubjectSystemEvents, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectSystemEvents, err)
	}

	logging.LogNATSEvent(SubjectSystemEvents, "publish", zap.String("kind", kind))
	return nil
}

// Close drains and closes the connection.
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
		ns.conn = nil
	}
}
