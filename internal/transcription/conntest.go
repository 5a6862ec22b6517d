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

package transcription

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/logging"
)

// conntestFixtureURL is a small public recording used to exercise the full
// submit-and-poll path without uploading anything.
const conntestFixtureURL = "https://github.com/AssemblyAI-Examples/audio-examples/raw/main/20230607_me_canadian_english.wav"

const (
	conntestPollInterval = 3 * time.Second
	conntestMaxPolls     = 30
)

// TestReport is the outcome of a provider connectivity check.
type TestReport struct {
	Provider   string  `json:"provider"`
	OK         bool    `json:"ok"`
	Message    string  `json:"message"`
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	ElapsedMS  int64   `json:"elapsed_ms"`
}

// ConnectionTester verifies that the upload-and-poll provider is reachable
// and the configured key is accepted, by transcribing a known public
// fixture end to end. A fixture transcription takes noticeably longer than
// a status ping but proves the whole path, key included.
type ConnectionTester struct {
	provider     *AssemblyAIProvider
	pollInterval time.Duration
	maxPolls     int
}

// NewConnectionTester wraps an existing provider with the slower probing
// budget.
func NewConnectionTester(provider *AssemblyAIProvider) *ConnectionTester {
	return &ConnectionTester{
		provider:     provider,
		pollInterval: conntestPollInterval,
		maxPolls:     conntestMaxPolls,
	}
}

// Run submits the fixture and polls on the tester's slower budget. A bad
// key is reported distinctly from other failures so the operator knows
// whether to fix credentials or connectivity.
func (t *ConnectionTester) Run(ctx context.Context) *TestReport {
	report := &TestReport{Provider: t.provider.Name()}
	start := time.Now()

	job, err := t.provider.submit(ctx, conntestFixtureURL, "en")
	if err == nil {
		var result *Result
		result, err = t.provider.awaitCompletion(ctx, job, t.pollInterval, t.maxPolls)
		if err == nil {
			report.OK = true
			report.Message = "connection verified"
			report.Transcript = result.Text
			report.Confidence = result.Confidence
			report.ElapsedMS = time.Since(start).Milliseconds()
			return report
		}
	}

	report.ElapsedMS = time.Since(start).Milliseconds()
	switch CategoryOf(err) {
	case CategoryUnauthorized:
		report.Message = "the API key was rejected, check the configured credential"
	case CategoryTimeout:
		report.Message = "the service accepted the job but did not finish in time"
	default:
		report.Message = "connection test failed: " + err.Error()
	}

	logging.LogWarn("Provider connection test failed",
		zap.String("provider", report.Provider),
		zap.String("category", string(CategoryOf(err))),
		zap.Error(err))

	return report
}
