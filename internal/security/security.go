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
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidTag is returned when a diary tag contains unsafe characters
	ErrInvalidTag = errors.New("invalid tag")

	// tagPattern validates diary tags to only allow safe characters
	tagPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// SanitizeLogInput removes newline characters to prevent log injection attacks
// This function should be used for all user-controlled data before logging
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateTag ensures that a diary tag contains only safe characters
// and prevents path traversal attacks. Only allows alphanumeric ASCII
// characters, dashes, and underscores.
func ValidateTag(tag string) error {
	// Check for empty tag
	if tag == "" {
		return ErrInvalidTag
	}

	// Check for path separators or parent directory references
	if strings.Contains(tag, "/") || strings.Contains(tag, "\\") || strings.Contains(tag, "..") {
		return ErrInvalidTag
	}

	// Validate against allowed character pattern
	if !tagPattern.MatchString(tag) {
		return ErrInvalidTag
	}

	return nil
}
