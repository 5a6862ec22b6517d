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
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV assembles a minimal 16-bit PCM RIFF/WAVE payload.
func buildWAV(t *testing.T, channels, sampleRate int, frames []int16) []byte {
	t.Helper()

	dataLen := len(frames) * 2
	buf := make([]byte, 0, 44+dataLen)

	le16 := func(v int) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	}
	le32 := func(v int) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, le32(36+dataLen)...)
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, le32(16)...)
	buf = append(buf, le16(1)...) // PCM
	buf = append(buf, le16(channels)...)
	buf = append(buf, le32(sampleRate)...)
	buf = append(buf, le32(sampleRate*channels*2)...)
	buf = append(buf, le16(channels*2)...)
	buf = append(buf, le16(16)...)

	buf = append(buf, []byte("data")...)
	buf = append(buf, le32(dataLen)...)
	for _, s := range frames {
		buf = append(buf, le16(int(uint16(s)))...)
	}

	return buf
}

func TestDecodePCMWaveMono(t *testing.T) {
	wav := buildWAV(t, 1, 16000, []int16{0, 16384, -16384, 32767})

	samples, sampleRate, err := decodePCMWave(wav)
	if err != nil {
		t.Fatalf("decodePCMWave() error = %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("sampleRate = %d", sampleRate)
	}
	if len(samples) != 4 {
		t.Fatalf("len(samples) = %d, want 4", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("samples[0] = %v", samples[0])
	}
	if math.Abs(float64(samples[1])-0.5) > 0.001 {
		t.Errorf("samples[1] = %v, want about 0.5", samples[1])
	}
	if math.Abs(float64(samples[2])+0.5) > 0.001 {
		t.Errorf("samples[2] = %v, want about -0.5", samples[2])
	}
}

func TestDecodePCMWaveStereoDownmix(t *testing.T) {
	// Left at full positive, right silent: downmix averages to half.
	wav := buildWAV(t, 2, 48000, []int16{32767, 0, 32767, 0})

	samples, sampleRate, err := decodePCMWave(wav)
	if err != nil {
		t.Fatalf("decodePCMWave() error = %v", err)
	}
	if sampleRate != 48000 {
		t.Errorf("sampleRate = %d", sampleRate)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2 downmixed frames", len(samples))
	}
	if math.Abs(float64(samples[0])-0.5) > 0.001 {
		t.Errorf("samples[0] = %v, want about 0.5", samples[0])
	}
}

func TestDecodePCMWaveRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("OggS this is not a wave file at all, promise......")},
		{"truncated header", []byte("RIFF....WAVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := decodePCMWave(tt.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestOnDeviceUnsupportedRuntime(t *testing.T) {
	provider := NewOnDeviceProvider(nil, "")
	if provider.Supported() {
		t.Error("Supported() = true with no runtime and no engine")
	}

	_, err := provider.Transcribe(context.Background(), writeTestClip(t, 4000), "lv")
	if got := CategoryOf(err); got != CategoryUnsupportedRuntime {
		t.Errorf("category = %v, want %v", got, CategoryUnsupportedRuntime)
	}
}

func TestWebSpeechErrorMessages(t *testing.T) {
	// Every recognizer error code the client runtime can report has a
	// human-readable mapping.
	for _, code := range []string{"no-speech", "audio-capture", "not-allowed", "network", "aborted"} {
		if _, ok := webSpeechErrorMessages[code]; !ok {
			t.Errorf("missing message for recognizer code %q", code)
		}
	}
}
