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
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{
			name:   "wav",
			header: []byte{'R', 'I', 'F', 'F', 0x10, 0x00, 0x00, 0x00, 'W', 'A', 'V', 'E'},
			want:   FormatWAV,
		},
		{
			name:   "m4a ftyp box",
			header: []byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'M', '4', 'A', ' '},
			want:   FormatMP4,
		},
		{
			name:   "webm ebml",
			header: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81, 0x01, 0x00, 0x00, 0x00},
			want:   FormatWebM,
		},
		{
			name:   "ogg",
			header: []byte{'O', 'g', 'g', 'S', 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			want:   FormatOgg,
		},
		{
			name:   "mp3 with id3 tag",
			header: []byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			want:   FormatMP3,
		},
		{
			name:   "mp3 frame sync",
			header: []byte{0xFF, 0xFB, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			want:   FormatMP3,
		},
		{
			name:   "unrecognized",
			header: []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B},
			want:   FormatUnknown,
		},
		{
			name:   "truncated header",
			header: []byte{'R', 'I'},
			want:   FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.header); got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	header := append([]byte("RIFF"), 0x10, 0x00, 0x00, 0x00)
	header = append(header, []byte("WAVEfmt ")...)
	if err := os.WriteFile(path, header, 0o600); err != nil {
		t.Fatalf("writing clip: %v", err)
	}

	asset, err := NewAsset(path)
	if err != nil {
		t.Fatalf("NewAsset() error = %v", err)
	}

	format, err := asset.SniffFormat()
	if err != nil {
		t.Fatalf("SniffFormat() error = %v", err)
	}
	if format != FormatWAV {
		t.Errorf("SniffFormat() = %q, want %q", format, FormatWAV)
	}
}
