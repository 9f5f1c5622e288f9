package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any 401 answer from the remote API.
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// Error is a non-2xx answer from the remote API.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
	Body    []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("apiclient: status %d", e.Status)
}

// Unwrap exposes ErrUnauthorized for 401 answers.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// FieldMessage returns the first validation message for field.
func (e *Error) FieldMessage(field string) string {
	if e == nil {
		return ""
	}
	for _, msg := range e.Fields[field] {
		if msg != "" {
			return msg
		}
	}
	return ""
}

func decodeError(status int, body []byte) *Error {
	apiErr := &Error{Status: status, Body: body}
	var payload struct {
		Message string                     `json:"message"`
		Error   string                     `json:"error"`
		Errors  map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return apiErr
	}
	apiErr.Message = payload.Message
	if apiErr.Message == "" {
		apiErr.Message = payload.Error
	}
	if len(payload.Errors) > 0 {
		apiErr.Fields = make(map[string][]string, len(payload.Errors))
		for field, raw := range payload.Errors {
			apiErr.Fields[field] = fieldMessages(raw)
		}
	}
	return apiErr
}

func fieldMessages(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}
