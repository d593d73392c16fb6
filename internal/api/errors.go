package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindServer     Kind = "server"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// Error is a backend failure normalized into a user-facing message.
type Error struct {
	Kind    Kind
	Status  int // 0 when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a normalized error, or KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// errorBody is the backend error envelope.
type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

// serverMessage extracts the backend's own explanation, if any. Field-level
// validation messages win over the top-level message.
func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if len(eb.Errors) > 0 {
		msgs := make([]string, 0, len(eb.Errors))
		for _, e := range eb.Errors {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, ", ")
		}
	}
	return eb.Message
}

// statusError maps an error response to the fixed text for its status.
func statusError(status int, body []byte) *Error {
	msg := serverMessage(body)
	or := func(fallback string) string {
		if msg != "" {
			return msg
		}
		return fallback
	}

	e := &Error{Status: status}
	switch status {
	case http.StatusBadRequest:
		e.Kind, e.Message = KindValidation, or("Invalid request. Please check your input.")
	case http.StatusUnauthorized:
		e.Kind, e.Message = KindAuth, "Unauthorized. Please log in."
	case http.StatusForbidden:
		e.Kind, e.Message = KindAuth, "Access denied. You don't have permission for this action."
	case http.StatusNotFound:
		e.Kind, e.Message = KindNotFound, or("Resource not found.")
	case http.StatusConflict:
		e.Kind, e.Message = KindConflict, or("Conflict. This resource already exists.")
	case http.StatusUnprocessableEntity:
		e.Kind, e.Message = KindValidation, or("Validation error. Please check your input.")
	case http.StatusInternalServerError:
		e.Kind, e.Message = KindServer, "Server error. Please try again later."
	default:
		e.Kind, e.Message = KindUnknown, or(fmt.Sprintf("Server error (%d). Please try again.", status))
	}
	return e
}

// networkError wraps a transport failure where no response arrived.
func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "Network error. Please check your internet connection.",
		Err:     err,
	}
}
