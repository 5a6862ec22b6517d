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
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Category classifies a provider-level failure. Categories drive the
// user-facing message; raw provider errors never reach the caller directly.
type Category string

const (
	CategoryAssetUnavailable   Category = "asset_unavailable"
	CategoryBadRequest         Category = "bad_request"
	CategoryUnauthorized       Category = "unauthorized"
	CategoryQuotaExceeded      Category = "quota_exceeded"
	CategoryUpload             Category = "upload_error"
	CategorySubmission         Category = "submission_error"
	CategoryStatusCheck        Category = "status_check_error"
	CategoryEmptyResult        Category = "empty_result"
	CategoryTimeout            Category = "timeout"
	CategoryUnsupportedRuntime Category = "unsupported_runtime"
	CategoryUnclassified       Category = "unclassified"
)

// Error is a categorized provider failure.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a categorized error without a cause.
func newError(category Category, format string, args ...interface{}) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// wrapError builds a categorized error wrapping a cause.
func wrapError(category Category, err error, format string, args ...interface{}) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...), Err: err}
}

// CategoryOf extracts the failure category from an error chain, defaulting
// to CategoryUnclassified.
func CategoryOf(err error) Category {
	var te *Error
	if errors.As(err, &te) {
		return te.Category
	}
	return CategoryUnclassified
}

// classifyHTTPStatus maps a non-success HTTP status plus response body to a
// failure category, falling back to the stage's own category when the status
// carries no stronger signal.
func classifyHTTPStatus(status int, body string, fallback Category) Category {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryUnauthorized
	case status == http.StatusPaymentRequired || status == http.StatusTooManyRequests:
		return CategoryQuotaExceeded
	case status == http.StatusBadRequest:
		return CategoryBadRequest
	case strings.Contains(strings.ToLower(body), "quota") || strings.Contains(strings.ToLower(body), "payment"):
		return CategoryQuotaExceeded
	default:
		return fallback
	}
}

// UserMessage renders a category-appropriate message suitable for showing to
// the diary user. Provider-internal jargon stays out of these strings.
func UserMessage(category Category) string {
	switch category {
	case CategoryAssetUnavailable:
		return "The audio recording could not be found"
	case CategoryBadRequest:
		return "Unsupported audio format"
	case CategoryUnauthorized:
		return "The transcription service rejected the configured API key"
	case CategoryQuotaExceeded:
		return "The free transcription quota has been exceeded"
	case CategoryUpload:
		return "Failed to upload the audio recording"
	case CategorySubmission:
		return "The transcription service could not accept the request"
	case CategoryStatusCheck:
		return "Lost contact with the transcription service while waiting for the result"
	case CategoryEmptyResult:
		return "No speech was recognized in the recording"
	case CategoryTimeout:
		return "Transcription took too long and was abandoned"
	case CategoryUnsupportedRuntime:
		return "On-device speech recognition is not available"
	default:
		return "Transcription failed, please try again"
	}
}

// failureResult converts a provider error into the normalized Result shape.
func failureResult(providerLabel string, err error) *Result {
	category := CategoryOf(err)
	msg := UserMessage(category)

	// Keep the remote processing detail when the remote engine itself
	// reported a failure that has no clearer domain message.
	var te *Error
	if category == CategoryUnclassified && errors.As(err, &te) && te.Message != "" {
		msg = te.Message
	}

	return &Result{
		Success:      false,
		Provider:     providerLabel,
		ErrorMessage: msg,
	}
}
