package account

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidRequest is returned before any network call when a required
	// field is empty.
	ErrInvalidRequest = errors.New("invalid account request")
	// ErrMalformedResponse is the cause attached to a 2xx response whose body
	// does not match the documented payload.
	ErrMalformedResponse = errors.New("malformed account response")
	// ErrTransport is the cause attached when no response was received.
	ErrTransport = errors.New("account api unreachable")
)

// Error is the canonical failure shape surfaced by every client call.
type Error struct {
	StatusCode int
	Message    string
	// Data is the raw error payload when the server sent valid JSON.
	Data json.RawMessage
	Err  error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRequest reports a missing required field as a 400 without any
// request being sent.
func InvalidRequest(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: message, Err: ErrInvalidRequest}
}

// malformedResponse reports a 2xx whose body is unusable as a 502.
func malformedResponse(fallback string, cause error) *Error {
	err := ErrMalformedResponse
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedResponse, cause)
	}
	return &Error{StatusCode: http.StatusBadGateway, Message: fallback, Err: err}
}

type fieldError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

type messagePayload struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

// NormalizeError maps an error payload to an [*Error].
//
// Message precedence: a JSON array of field errors joins each entry's
// description (or message when the description is empty) with a single
// space; an object uses its message, then its description; anything else
// uses fallback. A status of zero is reported as 500.
func NormalizeError(status int, body []byte, fallback string) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	out := &Error{StatusCode: status, Message: fallback}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return out
	}
	out.Data = json.RawMessage(append([]byte(nil), trimmed...))

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return out
		}
		parts := make([]string, 0, len(entries))
		for _, raw := range entries {
			var fe fieldError
			if err := json.Unmarshal(raw, &fe); err != nil {
				continue
			}
			switch {
			case fe.Description != "":
				parts = append(parts, fe.Description)
			case fe.Message != "":
				parts = append(parts, fe.Message)
			}
		}
		if len(parts) > 0 {
			out.Message = strings.Join(parts, " ")
		}
	case '{':
		var mp messagePayload
		if err := json.Unmarshal(trimmed, &mp); err != nil {
			return out
		}
		switch {
		case mp.Message != "":
			out.Message = mp.Message
		case mp.Description != "":
			out.Message = mp.Description
		}
	}
	return out
}

// StatusCode extracts the status carried by err, or 0 when err is not an
// [*Error].
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
