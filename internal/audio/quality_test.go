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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dienaslabs/dienas-hub/internal/config"
)

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{
		LowQualityBytes:  50_000,
		HighQualityBytes: 200_000,
		MinDuration:      1 * time.Second,
		MaxDuration:      5 * time.Minute,
		MaxFileSize:      25 * 1024 * 1024,
	}
}

// writeClip creates a fake recording of the given size and returns its asset.
func writeClip(t *testing.T, size int) *Asset {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.m4a")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, size), 0o600); err != nil {
		t.Fatalf("writing clip: %v", err)
	}

	asset, err := NewAsset(path)
	if err != nil {
		t.Fatalf("NewAsset() error = %v", err)
	}
	return asset
}

func TestAnalyze_Tiers(t *testing.T) {
	analyzer := NewAnalyzer(testAudioConfig())

	tests := []struct {
		name     string
		size     int
		wantTier Tier
	}{
		{name: "above high threshold", size: 600_000, wantTier: TierHigh},
		{name: "below low threshold", size: 20_000, wantTier: TierLow},
		{name: "between thresholds", size: 120_000, wantTier: TierMedium},
		{name: "exactly low threshold", size: 50_000, wantTier: TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := writeClip(t, tt.size)

			report, err := analyzer.Analyze(asset)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			if report.Tier != tt.wantTier {
				t.Errorf("Tier = %q, want %q", report.Tier, tt.wantTier)
			}
			if report.FileSize != int64(tt.size) {
				t.Errorf("FileSize = %d, want %d", report.FileSize, tt.size)
			}
			if report.Advisory == "" {
				t.Error("Advisory is empty, want non-empty advisory text")
			}
		})
	}
}

func TestAnalyze_DurationHeuristic(t *testing.T) {
	analyzer := NewAnalyzer(testAudioConfig())

	asset := writeClip(t, 320_000)
	report, err := analyzer.Analyze(asset)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// 320000 bytes at the assumed 32000 B/s byte rate estimates 10 seconds.
	if report.EstimatedDuration != 10 {
		t.Errorf("EstimatedDuration = %f, want 10", report.EstimatedDuration)
	}
}

func TestAnalyze_ShortClipForcesLowTier(t *testing.T) {
	// A file above the high-quality size threshold would classify high, but
	// a sub-second estimated duration must force the tier to low.
	cfg := testAudioConfig()
	cfg.MinDuration = 30 * time.Second
	analyzer := NewAnalyzer(cfg)

	asset := writeClip(t, 600_000) // estimates 18.75s, below the 30s minimum
	report, err := analyzer.Analyze(asset)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if report.Tier != TierLow {
		t.Errorf("Tier = %q, want %q for sub-minimum duration", report.Tier, TierLow)
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	analyzer := NewAnalyzer(testAudioConfig())

	asset := &Asset{Path: filepath.Join(t.TempDir(), "missing.m4a")}
	if _, err := analyzer.Analyze(asset); !errors.Is(err, ErrAssetUnavailable) {
		t.Errorf("Analyze() error = %v, want ErrAssetUnavailable", err)
	}
}

func TestNewAsset_Missing(t *testing.T) {
	if _, err := NewAsset(filepath.Join(t.TempDir(), "nope.wav")); !errors.Is(err, ErrAssetUnavailable) {
		t.Errorf("NewAsset() error = %v, want ErrAssetUnavailable", err)
	}
}
