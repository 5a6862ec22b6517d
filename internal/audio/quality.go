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

import (
	"fmt"
	"os"

	"github.com/dienaslabs/dienas-hub/internal/config"
)

// assumedByteRate approximates the byte rate of the mobile recorder's speech
// encoding. Duration is estimated as fileSize/assumedByteRate; no container
// metadata is decoded, so the value is a heuristic and nothing more.
const assumedByteRate = 32000

// Tier is a coarse classification of recorded-audio usability.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// QualityReport describes the estimated usability of a recording. It is
// derived on demand from the file on disk and never cached.
type QualityReport struct {
	// EstimatedDuration is the heuristic clip length in seconds.
	EstimatedDuration float64
	FileSize          int64
	Tier              Tier
	Advisory          string
}

// Analyzer classifies recorded audio by size-based quality heuristics.
type Analyzer struct {
	cfg config.AudioConfig
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(cfg config.AudioConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze inspects the asset's file and produces a quality report. The size
// is re-read from disk so a report always reflects the current file.
func (a *Analyzer) Analyze(asset *Asset) (*QualityReport, error) {
	info, err := os.Stat(asset.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}

	fileSize := info.Size()
	estimatedDuration := float64(fileSize) / assumedByteRate

	report := &QualityReport{
		EstimatedDuration: estimatedDuration,
		FileSize:          fileSize,
	}

	switch {
	case fileSize < a.cfg.LowQualityBytes:
		report.Tier = TierLow
		report.Advisory = "Record a longer clip for better recognition"
	case fileSize > a.cfg.HighQualityBytes:
		report.Tier = TierHigh
		report.Advisory = "Excellent quality for speech recognition"
	default:
		report.Tier = TierMedium
		report.Advisory = "Good quality for speech recognition"
	}

	// A clip below the minimum admissible duration is low quality no matter
	// how large the file is.
	if estimatedDuration < a.cfg.MinDuration.Seconds() {
		report.Tier = TierLow
		report.Advisory = "Audio is too short for reliable recognition"
	}

	return report, nil
}
