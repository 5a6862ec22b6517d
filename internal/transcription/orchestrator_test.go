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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dienaslabs/dienas-hub/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			Priority:       []string{"assemblyai", "openai", "google", "azure"},
			Language:       "lv",
			PollInterval:   time.Millisecond,
			MaxPollRetries: 3,
		},
		Audio: config.AudioConfig{
			LowQualityBytes:  50000,
			HighQualityBytes: 200000,
			MinDuration:      time.Second,
			MaxDuration:      5 * time.Minute,
			MaxFileSize:      25 * 1024 * 1024,
		},
		LocalSim: config.LocalSimConfig{
			Delay:         0,
			MinConfidence: 0.85,
			MaxConfidence: 1.0,
		},
	}
}

// writeClipAt writes a clip sized so the duration heuristic lands in the
// admissible window.
func writeClipAt(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("writing clip: %v", err)
	}
	return path
}

func TestOrchestratorNeverReturnsNil(t *testing.T) {
	cfg := testConfig()
	orch := NewOrchestrator(cfg, nil)

	// No credentials, no runtime, no engine: the only landing spot is the
	// simulation, and even a missing file must come back as a result.
	tests := []struct {
		name string
		req  Request
	}{
		{"missing file", Request{AudioPath: "/nonexistent/clip.webm"}},
		{"valid clip", Request{AudioPath: writeClipAt(t, 120000)}},
		{"empty file", Request{AudioPath: writeClipAt(t, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := orch.Transcribe(context.Background(), tt.req)
			if result == nil {
				t.Fatal("Transcribe() returned nil result")
			}
		})
	}
}

func TestOrchestratorRejectsInadmissibleAudio(t *testing.T) {
	orch := NewOrchestrator(testConfig(), nil)

	// 16000 bytes is half a second by the byte-rate heuristic, under the
	// one second floor.
	result := orch.Transcribe(context.Background(), Request{AudioPath: writeClipAt(t, 16000)})
	if result.Success {
		t.Fatal("expected rejection of too-short audio")
	}
	if !strings.Contains(result.ErrorMessage, "too short") {
		t.Errorf("ErrorMessage = %q, want a too-short rejection", result.ErrorMessage)
	}
	if result.Provider != "validator" {
		t.Errorf("Provider = %q, want %q", result.Provider, "validator")
	}
}

func TestOrchestratorLabelsEveryFailure(t *testing.T) {
	orch := NewOrchestrator(testConfig(), nil)

	// Consumers key history rows and UI copy off Provider, so even admission
	// failures must carry a label.
	for _, path := range []string{"/nonexistent/clip.webm", writeClipAt(t, 16000)} {
		result := orch.Transcribe(context.Background(), Request{AudioPath: path})
		if result.Success {
			t.Fatalf("expected failure for %s", path)
		}
		if result.Provider == "" {
			t.Errorf("Provider empty for %s", path)
		}
	}
}

func TestOrchestratorFallsBackToSimulation(t *testing.T) {
	// No provider credentials configured and no on-device path.
	orch := NewOrchestrator(testConfig(), nil)

	result := orch.Transcribe(context.Background(), Request{AudioPath: writeClipAt(t, 120000)})
	if !result.Success {
		t.Fatalf("expected simulated success, got %q", result.ErrorMessage)
	}
	if !strings.Contains(result.Provider, "simulated") {
		t.Errorf("Provider = %q, must be labelled as simulated", result.Provider)
	}
	if result.Confidence < 0.85 || result.Confidence > 1.0 {
		t.Errorf("Confidence = %v, want within configured band", result.Confidence)
	}
}

func TestOrchestratorLocalSimShortCircuits(t *testing.T) {
	cfg := testConfig()
	cfg.LocalSim.Enabled = true
	// A credential is configured but the simulation must win anyway.
	cfg.Providers.AssemblyAIKey = "real-key"

	orch := NewOrchestrator(cfg, nil)
	provider := orch.selectProvider("")
	if _, ok := provider.(*MockProvider); !ok {
		t.Errorf("selected %T, want the simulation when local sim is enabled", provider)
	}
}

func TestOrchestratorSelectsByPriority(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*config.Config)
		wantType  string
	}{
		{
			name:      "assemblyai first when configured",
			configure: func(c *config.Config) { c.Providers.AssemblyAIKey = "key" },
			wantType:  "*transcription.AssemblyAIProvider",
		},
		{
			name:      "openai when assemblyai missing",
			configure: func(c *config.Config) { c.Providers.OpenAIKey = "key" },
			wantType:  "*transcription.OpenAIProvider",
		},
		{
			name:      "google when earlier missing",
			configure: func(c *config.Config) { c.Providers.GoogleKey = "key" },
			wantType:  "*transcription.GoogleProvider",
		},
		{
			name:      "placeholder credential does not count",
			configure: func(c *config.Config) { c.Providers.AssemblyAIKey = "YOUR_API_KEY"; c.Providers.OpenAIKey = "key" },
			wantType:  "*transcription.OpenAIProvider",
		},
		{
			name:      "nothing configured lands on simulation",
			configure: func(c *config.Config) {},
			wantType:  "*transcription.MockProvider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.configure(cfg)

			orch := NewOrchestrator(cfg, nil)
			provider := orch.selectProvider("")

			got := typeName(provider)
			if got != tt.wantType {
				t.Errorf("selected %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestOrchestratorAzureDegradesToSimulation(t *testing.T) {
	cfg := testConfig()
	// Azure is the only configured provider but carries no implementation.
	cfg.Providers.AzureKey = "azure-key"
	cfg.Providers.AzureRegion = "westeurope"

	orch := NewOrchestrator(cfg, nil)
	provider := orch.selectProvider("")
	if _, ok := provider.(*MockProvider); !ok {
		t.Errorf("selected %T, want the simulation when only azure is configured", provider)
	}
}

func TestOrchestratorPreferredProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Providers.AssemblyAIKey = "key"
	cfg.Providers.GoogleKey = "key"

	orch := NewOrchestrator(cfg, nil)

	// An available preference beats priority order.
	if provider := orch.selectProvider(ProviderGoogle); typeName(provider) != "*transcription.GoogleProvider" {
		t.Errorf("selected %s, want the preferred google provider", typeName(provider))
	}

	// An unavailable preference falls back to the normal order.
	if provider := orch.selectProvider(ProviderOpenAI); typeName(provider) != "*transcription.AssemblyAIProvider" {
		t.Errorf("selected %s, want the priority fallback", typeName(provider))
	}

	// An on-device preference with no runtime or engine falls back too.
	if provider := orch.selectProvider(ProviderOnDevice); typeName(provider) != "*transcription.AssemblyAIProvider" {
		t.Errorf("selected %s, want the priority fallback for unsupported on-device", typeName(provider))
	}
}

func TestOrchestratorSurfacesValidationWarnings(t *testing.T) {
	orch := NewOrchestrator(testConfig(), nil)

	// 40000 bytes is 1.25 seconds and low tier: admissible with warnings.
	result := orch.Transcribe(context.Background(), Request{AudioPath: writeClipAt(t, 40000)})
	if !result.Success {
		t.Fatalf("expected success with warnings, got %q", result.ErrorMessage)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected low-quality warnings on the result")
	}
}

func typeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	switch v.(type) {
	case *AssemblyAIProvider:
		return "*transcription.AssemblyAIProvider"
	case *OpenAIProvider:
		return "*transcription.OpenAIProvider"
	case *GoogleProvider:
		return "*transcription.GoogleProvider"
	case *OnDeviceProvider:
		return "*transcription.OnDeviceProvider"
	case *MockProvider:
		return "*transcription.MockProvider"
	default:
		return "unknown"
	}
}

func TestMockProviderProperties(t *testing.T) {
	mock := NewMockProvider(config.LocalSimConfig{
		Delay:         0,
		MinConfidence: 0.85,
		MaxConfidence: 1.0,
	})

	if !strings.Contains(mock.Name(), "simulated") {
		t.Errorf("Name() = %q, must declare itself simulated", mock.Name())
	}

	asset := writeTestClip(t, 4000)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		result, err := mock.Transcribe(context.Background(), asset, "lv")
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if result.Text == "" {
			t.Fatal("simulated transcript must not be empty")
		}
		if result.Confidence < 0.85 || result.Confidence > 1.0 {
			t.Errorf("Confidence = %v outside configured band", result.Confidence)
		}
		seen[result.Text] = true
	}
	if len(seen) < 2 {
		t.Error("expected the simulation to vary its canned transcripts")
	}
}

func TestMockProviderConcurrentTranscribe(t *testing.T) {
	mock := NewMockProvider(config.LocalSimConfig{
		Delay:         0,
		MinConfidence: 0.85,
		MaxConfidence: 1.0,
	})

	asset := writeTestClip(t, 4000)

	// Requests arrive from concurrent HTTP handlers. Run under -race.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				result, err := mock.Transcribe(context.Background(), asset, "lv")
				if err != nil {
					t.Errorf("Transcribe() error = %v", err)
					return
				}
				if result.Confidence < 0.85 || result.Confidence > 1.0 {
					t.Errorf("Confidence = %v outside configured band", result.Confidence)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestMockProviderHonorsCancellation(t *testing.T) {
	mock := NewMockProvider(config.LocalSimConfig{
		Delay:         time.Hour,
		MinConfidence: 0.85,
		MaxConfidence: 1.0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := mock.Transcribe(ctx, writeTestClip(t, 4000), "lv")
	if got := CategoryOf(err); got != CategoryTimeout {
		t.Errorf("category = %v, want %v", got, CategoryTimeout)
	}
}
