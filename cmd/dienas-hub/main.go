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

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/server"
)

func main() {
	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		logging.LogError(err, "Failed to create server")
		log.Fatalf("Failed to create server: %v", err)
	}

	// Serve until interrupted, then shut down gracefully.
	done := make(chan error, 1)
	go func() {
		done <- srv.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			logging.LogError(err, "Server exited with error")
			log.Fatalf("Server exited with error: %v", err)
		}
	case s := <-sig:
		logging.LogInfo("Received shutdown signal", zap.String("signal", s.String()))
		if err := srv.Stop(); err != nil {
			logging.LogError(err, "Shutdown failed")
			log.Fatalf("Shutdown failed: %v", err)
		}
		<-done
	}
}
