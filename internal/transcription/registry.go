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
	"strings"

	"github.com/dienaslabs/dienas-hub/internal/config"
)

// ProviderID identifies a transcription backend in configuration.
type ProviderID string

const (
	ProviderAssemblyAI ProviderID = "assemblyai"
	ProviderOpenAI     ProviderID = "openai"
	ProviderGoogle     ProviderID = "google"
	ProviderAzure      ProviderID = "azure"
	ProviderOnDevice   ProviderID = "ondevice"
	ProviderMock       ProviderID = "mock"
)

// Descriptor holds a provider's static configuration: credential, priority
// rank and capability flags. The set of descriptors is fixed for the
// lifetime of the process.
type Descriptor struct {
	ID         ProviderID
	Credential string
	Priority   int

	// RequiresUpload marks upload-and-poll providers that need the audio
	// pushed to remote storage before submission.
	RequiresUpload bool

	// SupportsLanguageDetection marks providers that accept "auto-detect"
	// instead of an explicit language code.
	SupportsLanguageDetection bool
}

// Available reports whether a usable credential is configured. Placeholder
// values of the form "YOUR_..." left over from sample configuration do not
// count.
func (d Descriptor) Available() bool {
	return d.Credential != "" && !strings.HasPrefix(d.Credential, "YOUR_")
}

// Registry yields providers in the configured priority order. It is
// read-only after construction.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry builds a registry from provider configuration, ordering the
// descriptors by the configured priority list. Unknown ids in the priority
// list are ignored.
func NewRegistry(cfg config.ProvidersConfig) *Registry {
	credentials := map[ProviderID]string{
		ProviderAssemblyAI: cfg.AssemblyAIKey,
		ProviderOpenAI:     cfg.OpenAIKey,
		ProviderGoogle:     cfg.GoogleKey,
		ProviderAzure:      cfg.AzureKey,
	}

	var descriptors []Descriptor
	for rank, name := range cfg.Priority {
		id := ProviderID(strings.ToLower(name))
		credential, known := credentials[id]
		if !known {
			continue
		}

		descriptors = append(descriptors, Descriptor{
			ID:                        id,
			Credential:                credential,
			Priority:                  rank,
			RequiresUpload:            id == ProviderAssemblyAI,
			SupportsLanguageDetection: id == ProviderAssemblyAI || id == ProviderOpenAI,
		})
	}

	return &Registry{descriptors: descriptors}
}

// ListByPriority returns all descriptors, highest priority first.
func (r *Registry) ListByPriority() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// FirstAvailable returns the highest-priority descriptor with a usable
// credential. The second return is false when no provider is configured;
// callers must treat that as "degrade", never as a fatal error.
func (r *Registry) FirstAvailable() (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Available() {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Get returns the descriptor for the given id.
func (r *Registry) Get(id ProviderID) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
