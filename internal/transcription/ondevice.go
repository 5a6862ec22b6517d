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
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dienaslabs/dienas-hub/internal/audio"
	"github.com/dienaslabs/dienas-hub/internal/logging"
	"github.com/dienaslabs/dienas-hub/internal/speech"
)

// webSpeechErrorMessages translates the recognizer error codes a client
// runtime reports into messages a person can act on.
var webSpeechErrorMessages = map[string]string{
	"no-speech":     "No speech was detected. Try speaking closer to the microphone.",
	"audio-capture": "No microphone was found or it could not be used.",
	"not-allowed":   "Microphone access was denied. Allow it in the browser settings.",
	"network":       "A network error interrupted recognition. Check the connection.",
	"aborted":       "Recognition was aborted before it finished.",
}

// recognitionEngine is the embedded fallback behind the on-device
// provider. The real engine only exists under the whisper build tag.
type recognitionEngine interface {
	Transcribe(samples []float32, sampleRate int) (string, error)
	Close() error
}

// OnDeviceProvider recognizes speech without calling a hosted service. It
// prefers a client runtime attached over the websocket relay, since that
// runtime heard the original capture, and falls back to the embedded
// engine when one is compiled in.
type OnDeviceProvider struct {
	hub    *speech.RuntimeHub
	engine recognitionEngine
}

// NewOnDeviceProvider wires the relay hub and, when a model path is
// configured and the engine is compiled in, the embedded engine. An engine
// that fails to load is logged and skipped rather than blocking startup.
func NewOnDeviceProvider(hub *speech.RuntimeHub, modelPath string) *OnDeviceProvider {
	p := &OnDeviceProvider{hub: hub}

	if modelPath != "" {
		engine, err := newWhisperEngine(modelPath)
		if err != nil {
			logging.LogWarn("Embedded recognition engine unavailable",
				zap.String("model_path", modelPath),
				zap.Error(err))
		} else {
			p.engine = engine
		}
	}

	return p
}

// Name implements Provider.
func (p *OnDeviceProvider) Name() string {
	return "On-device"
}

// Supported reports whether any on-device path can currently serve a
// request.
func (p *OnDeviceProvider) Supported() bool {
	if p.hub != nil && p.hub.Available() {
		return true
	}
	return p.engine != nil
}

// Transcribe implements Provider.
func (p *OnDeviceProvider) Transcribe(ctx context.Context, asset *audio.Asset, languageHint string) (*Result, error) {
	if p.hub != nil && p.hub.Available() {
		return p.transcribeViaRuntime(asset, languageHint)
	}
	if p.engine != nil {
		return p.transcribeViaEngine(asset)
	}
	return nil, newError(CategoryUnsupportedRuntime, "no on-device recognition path is available")
}

func (p *OnDeviceProvider) transcribeViaRuntime(asset *audio.Asset, languageHint string) (*Result, error) {
	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return nil, wrapError(CategoryAssetUnavailable, err, "reading audio asset")
	}

	recognition, err := p.hub.Recognize(base64.StdEncoding.EncodeToString(data), asset.MIMEHint, languageHint)
	if err != nil {
		return nil, wrapError(CategoryUnsupportedRuntime, err, "client runtime recognition failed")
	}

	if recognition.ErrorCode != "" {
		message, known := webSpeechErrorMessages[recognition.ErrorCode]
		if !known {
			message = fmt.Sprintf("recognition failed with code %q", recognition.ErrorCode)
		}
		if recognition.ErrorCode == "no-speech" {
			return nil, newError(CategoryEmptyResult, "%s", message)
		}
		return nil, newError(CategoryUnclassified, "%s", message)
	}

	if strings.TrimSpace(recognition.Text) == "" {
		return nil, newError(CategoryEmptyResult, "recognition returned empty text")
	}

	return &Result{
		Success:    true,
		Text:       recognition.Text,
		Confidence: recognition.Confidence,
		Provider:   p.Name(),
	}, nil
}

func (p *OnDeviceProvider) transcribeViaEngine(asset *audio.Asset) (*Result, error) {
	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return nil, wrapError(CategoryAssetUnavailable, err, "reading audio asset")
	}

	samples, sampleRate, err := decodePCMWave(data)
	if err != nil {
		return nil, wrapError(CategoryBadRequest, err, "embedded engine requires PCM WAV input")
	}

	text, err := p.engine.Transcribe(samples, sampleRate)
	if err != nil {
		return nil, wrapError(CategoryUnclassified, err, "embedded engine failed")
	}
	if strings.TrimSpace(text) == "" {
		return nil, newError(CategoryEmptyResult, "embedded engine returned empty text")
	}

	return &Result{
		Success:    true,
		Text:       text,
		Confidence: 0.9,
		Provider:   p.Name(),
	}, nil
}

// Close releases the embedded engine if one is loaded.
func (p *OnDeviceProvider) Close() {
	if p.engine != nil {
		if err := p.engine.Close(); err != nil {
			logging.LogWarn("Closing recognition engine", zap.Error(err))
		}
	}
}

// decodePCMWave extracts mono float32 samples from a 16-bit PCM RIFF/WAVE
// payload. Stereo input is downmixed by averaging channels.
func decodePCMWave(data []byte) ([]float32, int, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE payload")
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		pcm        []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("truncated fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported WAVE format %d, only PCM is handled", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}
	if bitDepth != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d, only 16-bit PCM is handled", bitDepth)
	}
	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("missing data chunk")
	}

	frameSize := 2 * channels
	frames := len(pcm) / frameSize
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			raw := int16(binary.LittleEndian.Uint16(pcm[i*frameSize+c*2 : i*frameSize+c*2+2]))
			sum += float32(raw) / 32768.0
		}
		samples[i] = sum / float32(channels)
	}

	return samples, sampleRate, nil
}
