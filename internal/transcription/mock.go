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
	"math/rand"
	"time"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/config"
)

// mockTexts are the canned transcripts the simulation cycles through. They
// are obviously placeholder content so a simulated result is never mistaken
// for a real one.
var mockTexts = []string{
	"Šodien bija produktīva diena, pabeidzu visus plānotos darbus.",
	"Atgādinājums: rīt pulksten deviņos tikšanās ar komandu.",
	"Pierakstīt domas par jauno projektu pirms tās aizmirstas.",
	"Nopirkt pienu, maizi un kafiju pa ceļam uz mājām.",
	"Vakara pārdomas: vairāk laika veltīt lasīšanai.",
}

// MockProvider produces simulated transcripts after a configurable delay.
// It never fails and exists so the rest of the pipeline always has a floor
// to land on when no real provider can serve a request.
type MockProvider struct {
	delay         time.Duration
	minConfidence float64
	maxConfidence float64
}

// NewMockProvider creates a simulation provider from configuration.
func NewMockProvider(cfg config.LocalSimConfig) *MockProvider {
	return &MockProvider{
		delay:         cfg.Delay,
		minConfidence: cfg.MinConfidence,
		maxConfidence: cfg.MaxConfidence,
	}
}

// Name implements Provider. The label makes the simulated origin explicit
// in every surface that displays it.
func (p *MockProvider) Name() string {
	return "local-mock (simulated)"
}

// Transcribe implements Provider. It always succeeds unless the context is
// cancelled during the simulated processing delay.
func (p *MockProvider) Transcribe(ctx context.Context, asset *audio.Asset, languageHint string) (*Result, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, wrapError(CategoryTimeout, ctx.Err(), "simulation interrupted")
		case <-time.After(p.delay):
		}
	}

	// The orchestrator serves concurrent HTTP requests, so the shared
	// top-level math/rand source is used rather than a per-provider
	// *rand.Rand, which is not safe for concurrent callers.
	confidence := p.minConfidence + rand.Float64()*(p.maxConfidence-p.minConfidence)

	return &Result{
		Success:    true,
		Text:       mockTexts[rand.Intn(len(mockTexts))],
		Confidence: confidence,
		Provider:   p.Name(),
	}, nil
}
