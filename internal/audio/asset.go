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

// Package audio provides the recorded-audio asset handle plus the quality
// heuristics and admission checks that gate transcription attempts.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrAssetUnavailable indicates the referenced audio file does not exist or
// cannot be read.
var ErrAssetUnavailable = errors.New("audio asset unavailable")

// Asset is an opaque handle to a recorded audio clip. The recording
// subsystem creates it; everything downstream treats it as read-only.
type Asset struct {
	Path     string
	Size     int64
	MIMEHint string
}

// NewAsset stats the file at path and returns an asset handle for it.
func NewAsset(path string) (*Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetUnavailable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrAssetUnavailable, path)
	}

	return &Asset{
		Path: path,
		Size: info.Size(),
	}, nil
}

// Format is a coarse audio container classification derived from the file's
// leading magic bytes.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP4     Format = "mp4" // also covers m4a/aac containers
	FormatWebM    Format = "webm"
	FormatOgg     Format = "ogg"
	FormatMP3     Format = "mp3"
	FormatUnknown Format = "unknown"
)

// DetectFormat classifies an audio payload by its leading bytes. The header
// slice should carry at least the first 12 bytes of the file; shorter input
// yields FormatUnknown.
func DetectFormat(header []byte) Format {
	if len(header) < 4 {
		return FormatUnknown
	}

	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return FormatMP4
	case bytes.Equal(header[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case bytes.Equal(header[0:4], []byte("OggS")):
		return FormatOgg
	case bytes.Equal(header[0:3], []byte("ID3")):
		return FormatMP3
	case header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// SniffFormat reads the first bytes of the asset and classifies its container.
func (a *Asset) SniffFormat() (Format, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}

	return DetectFormat(header[:n]), nil
}
