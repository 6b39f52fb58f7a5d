// Package server maps internal failure conditions onto the single outward
// error event shape and decides whether a connection survives the failure.
package server

import "errors"

// relayError is a failure condition with a client-facing message. Hard errors
// terminate the connection after the error event is delivered; soft errors
// leave it open.
type relayError struct {
	message string
	hard    bool
}

func (e *relayError) Error() string { return e.message }

var (
	errInvalidUsername    = &relayError{message: "Invalid username", hard: true}
	errUsernameTaken      = &relayError{message: "Username already taken", hard: true}
	errUsernameAlreadySet = &relayError{message: "Username already set"}

	errInvalidFormat     = &relayError{message: "Invalid message format"}
	errTextRequired      = &relayError{message: "Message text is required"}
	errMessageTooLong    = &relayError{message: "Message too long"}
	errRecipientRequired = &relayError{message: `Invalid message. "to" and "text" required.`}

	errUsernameNotSet    = &relayError{message: "Username not set"}
	errRecipientNotFound = &relayError{message: "Recipient not found"}

	errInternal = &relayError{message: "An error occurred"}
)

// asRelayError resolves err to its client-facing form. Anything that is not a
// relayError is an unexpected internal failure and degrades to the generic
// message.
func asRelayError(err error) *relayError {
	var re *relayError
	if errors.As(err, &re) {
		return re
	}
	return errInternal
}
