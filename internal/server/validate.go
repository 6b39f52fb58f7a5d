// Package server checks and cleans inbound payloads before they reach the
// router. Validation rejects malformed payloads; sanitization never fails and
// degrades oversized or unsafe text instead.
package server

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// maxMessageChars bounds the visible length of a delivered message.
const maxMessageChars = 500

// truncationMarker is appended when sanitization shortens a message.
const truncationMarker = "..."

var validate = validator.New()

// validateUsername decodes and checks a set_username payload.
func validateUsername(data json.RawMessage) (SetUsernamePayload, error) {
	var payload SetUsernamePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return SetUsernamePayload{}, errInvalidUsername
	}
	if err := validate.Struct(payload); err != nil {
		return SetUsernamePayload{}, errInvalidUsername
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" {
		return SetUsernamePayload{}, errInvalidUsername
	}
	return payload, nil
}

// validateMessage decodes and checks a message payload. Field failures map to
// the canonical client-facing errors.
func validateMessage(data json.RawMessage) (MessagePayload, error) {
	var payload MessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return MessagePayload{}, errInvalidFormat
	}
	if err := validate.Struct(payload); err != nil {
		return MessagePayload{}, mapFieldError(err)
	}
	return payload, nil
}

func mapFieldError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errInvalidFormat
	}

	for _, fe := range fieldErrs {
		switch {
		case fe.Field() == "To":
			return errRecipientRequired
		case fe.Field() == "Text" && fe.Tag() == "max":
			return errMessageTooLong
		case fe.Field() == "Text":
			return errTextRequired
		}
	}
	return errInvalidFormat
}

// Sanitize cleans message text for delivery: leading/trailing whitespace is
// trimmed, angle brackets are escaped to their HTML entities, and anything
// beyond the length bound is cut with a truncation marker. It is total and,
// for inputs within the bound, idempotent.
func Sanitize(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "<", "&lt;")
	cleaned = strings.ReplaceAll(cleaned, ">", "&gt;")

	if utf8.RuneCountInString(cleaned) > maxMessageChars {
		runes := []rune(cleaned)
		cleaned = string(runes[:maxMessageChars]) + truncationMarker
	}
	return cleaned
}
