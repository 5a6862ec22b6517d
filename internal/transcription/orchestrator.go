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

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/config"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/speech"
)

// Request describes one transcription attempt.
type Request struct {
	// AudioPath points at the stored upload on local disk.
	AudioPath string
	// Language is a BCP 47 hint such as "lv-LV". Empty means the
	// configured default.
	Language string
	// Preferred optionally pins a provider. An unavailable preference
	// falls back to the normal selection order instead of failing.
	Preferred ProviderID
}

// Orchestrator selects a provider for each request and shields callers
// from provider failures: every call returns a Result, never an error.
// Selection order is the local simulation when enabled, then an explicit
// on-device preference, then the highest-priority remote provider with a
// real credential, then on-device as a fallback, then the simulation.
type Orchestrator struct {
	validator *audio.Validator
	registry  *Registry

	remote   map[ProviderID]Provider
	onDevice *OnDeviceProvider
	mock     *MockProvider

	localSimEnabled bool
	defaultLanguage string
}

// NewOrchestrator wires the full provider set from configuration.
func NewOrchestrator(cfg *config.Config, hub *speech.RuntimeHub) *Orchestrator {
	analyzer := audio.NewAnalyzer(cfg.Audio)

	remote := map[ProviderID]Provider{
		ProviderAssemblyAI: NewAssemblyAIProvider(cfg.Providers.AssemblyAIKey, cfg.Providers.PollInterval, cfg.Providers.MaxPollRetries),
		ProviderOpenAI:     NewOpenAIProvider(cfg.Providers.OpenAIKey),
		ProviderGoogle:     NewGoogleProvider(cfg.Providers.GoogleKey),
		// Azure appears in the priority list but carries no
		// implementation yet; selection degrades past it.
	}

	return &Orchestrator{
		validator:       audio.NewValidator(analyzer),
		registry:        NewRegistry(cfg.Providers),
		remote:          remote,
		onDevice:        NewOnDeviceProvider(hub, cfg.OnDevice.WhisperModelPath),
		mock:            NewMockProvider(cfg.LocalSim),
		localSimEnabled: cfg.LocalSim.Enabled,
		defaultLanguage: cfg.Providers.Language,
	}
}

// Registry exposes the provider registry for status endpoints.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// OnDeviceSupported reports whether any on-device recognition path exists.
func (o *Orchestrator) OnDeviceSupported() bool {
	return o.onDevice.Supported()
}

// Transcribe validates the audio, picks a provider and runs it. The
// returned result always has Provider set and carries validation warnings
// whether the attempt succeeded or not.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) *Result {
	language := req.Language
	if language == "" {
		language = o.defaultLanguage
	}

	asset, err := audio.NewAsset(req.AudioPath)
	if err != nil {
		return failureResult("validator", wrapError(CategoryAssetUnavailable, err, "locating audio asset"))
	}

	outcome := o.validator.Validate(asset)
	if !outcome.Admissible {
		logging.LogTranscription("validator", "rejected",
			zap.String("path", req.AudioPath),
			zap.String("reason", outcome.RejectionReason))
		return &Result{
			Success:      false,
			Provider:     "validator",
			ErrorMessage: outcome.RejectionReason,
			Warnings:     outcome.Warnings,
		}
	}

	provider := o.selectProvider(req.Preferred)
	logging.LogTranscription(provider.Name(), "selected",
		zap.String("path", req.AudioPath),
		zap.String("language", language),
		zap.Strings("warnings", outcome.Warnings))

	result, err := provider.Transcribe(ctx, asset, language)
	if err != nil {
		result = failureResult(provider.Name(), err)
		logging.LogTranscription(provider.Name(), "failed",
			zap.String("category", string(CategoryOf(err))),
			zap.Error(err))
	}

	result.Provider = provider.Name()
	result.Warnings = append(result.Warnings, outcome.Warnings...)
	return result
}

// selectProvider walks the fallback chain and always lands on a provider.
func (o *Orchestrator) selectProvider(preferred ProviderID) Provider {
	if o.localSimEnabled {
		return o.mock
	}

	if preferred == ProviderOnDevice {
		if o.onDevice.Supported() {
			return o.onDevice
		}
		logging.LogWarn("On-device recognition requested but unsupported, falling back")
	}

	if preferred != "" && preferred != ProviderOnDevice && preferred != ProviderMock {
		if desc, ok := o.registry.Get(preferred); ok && desc.Available() {
			if provider := o.remote[preferred]; provider != nil {
				return provider
			}
			logging.LogWarn("Preferred provider is configured but not implemented",
				zap.String("provider", string(preferred)))
		}
	}

	if desc, ok := o.registry.FirstAvailable(); ok {
		if provider := o.remote[desc.ID]; provider != nil {
			return provider
		}
		// A configured credential for a provider this build cannot talk
		// to, for example Azure. Degrade rather than fail.
		logging.LogWarn("Highest-priority provider is configured but not implemented",
			zap.String("provider", string(desc.ID)))
	}

	if o.onDevice.Supported() {
		return o.onDevice
	}

	return o.mock
}

// Close releases provider resources.
func (o *Orchestrator) Close() {
	o.onDevice.Close()
}
