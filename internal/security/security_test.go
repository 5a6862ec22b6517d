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

package security

import (
	"strings"
	"testing"
)

func TestSanitizeLogInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Clean input",
			input:    "normal log message",
			expected: "normal log message",
		},
		{
			name:     "Single newline",
			input:    "line1\nline2",
			expected: "line1line2",
		},
		{
			name:     "CRLF sequence",
			input:    "line1\r\nline2",
			expected: "line1line2",
		},
		{
			name:     "Log injection attempt",
			input:    "clip.webm\nERROR: fake error message",
			expected: "clip.webmERROR: fake error message",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Only newlines",
			input:    "\n\r\n\r",
			expected: "",
		},
		{
			name:     "Unicode characters preserved",
			input:    "Šodienas ieraksts\nSecond line",
			expected: "Šodienas ierakstsSecond line",
		},
		{
			name:     "Special characters preserved",
			input:    "user@domain.com\npassword=secret!@#$%",
			expected: "user@domain.compassword=secret!@#$%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeLogInput(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeLogInput(%q) = %q, want %q", tt.input, result, tt.expected)
			}

			if strings.Contains(result, "\n") || strings.Contains(result, "\r") {
				t.Errorf("SanitizeLogInput(%q) still contains line breaks: %q", tt.input, result)
			}
		})
	}
}

func TestValidateTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		wantErr bool
	}{
		{
			name:    "Simple tag",
			tag:     "work",
			wantErr: false,
		},
		{
			name:    "Tag with dash and underscore",
			tag:     "mealtime_log-2025",
			wantErr: false,
		},
		{
			name:    "Empty tag",
			tag:     "",
			wantErr: true,
		},
		{
			name:    "Path traversal",
			tag:     "../etc/passwd",
			wantErr: true,
		},
		{
			name:    "Forward slash",
			tag:     "work/home",
			wantErr: true,
		},
		{
			name:    "Backslash",
			tag:     "work\\home",
			wantErr: true,
		},
		{
			name:    "Whitespace",
			tag:     "two words",
			wantErr: true,
		},
		{
			name:    "Newline injection",
			tag:     "tag\nERROR",
			wantErr: true,
		},
		{
			name:    "Non-ASCII letters rejected",
			tag:     "diēna",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTag(tt.tag)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateTag(%q) expected error, got nil", tt.tag)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateTag(%q) unexpected error: %v", tt.tag, err)
			}
		})
	}
}

func BenchmarkSanitizeLogInput(b *testing.B) {
	testInput := "Normal log message with some\nmalicious\r\ncontent that needs sanitization"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizeLogInput(testInput)
	}
}
