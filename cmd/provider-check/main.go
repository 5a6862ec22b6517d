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

// provider-check submits a short public audio fixture to the configured
// transcription provider and reports whether the credential works. Useful
// before pointing a fresh deployment at real uploads.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/transcription"
)

func main() {
	var (
		apiKey  = flag.String("key", "", "AssemblyAI API key (defaults to ASSEMBLYAI_API_KEY)")
		timeout = flag.Duration("timeout", 2*time.Minute, "Overall budget for the check")
		asJSON  = flag.Bool("json", false, "Print the report as JSON")
	)
	flag.Parse()

	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	key := *apiKey
	if key == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		key = cfg.Providers.AssemblyAIKey
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "No API key: pass -key or set ASSEMBLYAI_API_KEY")
		os.Exit(2)
	}

	provider := transcription.NewAssemblyAIProvider(key, 3*time.Second, 30)
	tester := transcription.NewConnectionTester(provider)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report := tester.Run(ctx)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	} else {
		fmt.Printf("provider:   %s\n", report.Provider)
		fmt.Printf("ok:         %v\n", report.OK)
		fmt.Printf("message:    %s\n", report.Message)
		if report.Transcript != "" {
			fmt.Printf("transcript: %s\n", report.Transcript)
			fmt.Printf("confidence: %.2f\n", report.Confidence)
		}
		fmt.Printf("elapsed:    %dms\n", report.ElapsedMS)
	}

	if !report.OK {
		os.Exit(1)
	}
}
