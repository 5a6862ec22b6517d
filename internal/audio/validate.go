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

package audio

import "fmt"

// verySmallBytes is the sanity threshold below which a recording almost
// certainly carries no usable speech.
const verySmallBytes = 10_000

// Outcome is the result of a pre-flight admission check. Warnings are
// advisory and never block a transcription attempt.
type Outcome struct {
	Admissible      bool
	RejectionReason string
	Warnings        []string
}

// Validator enforces hard admission limits before a transcription attempt.
// It is callable independently of transcription as a pre-flight check.
type Validator struct {
	analyzer    *Analyzer
	minDuration float64 // seconds
	maxDuration float64 // seconds
	maxFileSize int64
}

// NewValidator creates a validator sharing the analyzer's thresholds.
func NewValidator(analyzer *Analyzer) *Validator {
	return &Validator{
		analyzer:    analyzer,
		minDuration: analyzer.cfg.MinDuration.Seconds(),
		maxDuration: analyzer.cfg.MaxDuration.Seconds(),
		maxFileSize: analyzer.cfg.MaxFileSize,
	}
}

// Validate checks the asset against the configured admission limits.
func (v *Validator) Validate(asset *Asset) Outcome {
	report, err := v.analyzer.Analyze(asset)
	if err != nil {
		return Outcome{
			Admissible:      false,
			RejectionReason: "could not validate audio file",
		}
	}

	if report.FileSize == 0 {
		return Outcome{
			Admissible:      false,
			RejectionReason: "audio file is empty",
		}
	}

	if report.EstimatedDuration < v.minDuration {
		return Outcome{
			Admissible:      false,
			RejectionReason: fmt.Sprintf("audio is too short for transcription (minimum %.0f second(s))", v.minDuration),
		}
	}

	if report.EstimatedDuration > v.maxDuration {
		return Outcome{
			Admissible:      false,
			RejectionReason: fmt.Sprintf("audio is too long for transcription (maximum %.0f minutes)", v.maxDuration/60),
		}
	}

	if report.FileSize > v.maxFileSize {
		return Outcome{
			Admissible:      false,
			RejectionReason: fmt.Sprintf("audio file is too large (maximum %d MB)", v.maxFileSize/(1024*1024)),
		}
	}

	var warnings []string
	if report.Tier == TierLow {
		warnings = append(warnings, "low audio quality may reduce recognition accuracy")
	}
	if report.FileSize < verySmallBytes {
		warnings = append(warnings, "very small file size, recording may be incomplete")
	}

	return Outcome{
		Admissible: true,
		Warnings:   warnings,
	}
}
