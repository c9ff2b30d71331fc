package chat

import "errors"

// User-state errors, reported to the triggering connection as an "error"
// event and never allowed to touch anyone else's session.
var (
	errMalformedMessage = errors.New("malformed message payload")
	errEmptyMessage     = errors.New("empty message")
)
