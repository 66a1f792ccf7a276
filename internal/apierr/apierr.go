// Package apierr classifies failed API calls into the error taxonomy shared by
// the transport, the retry policy and the save flows.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindServer     Kind = "server"
	KindNetwork    Kind = "network"
	KindNotFound   Kind = "not_found"
	KindClient     Kind = "client"
)

// Error is returned for every failed request. Status is 0 when no response
// was received.
type Error struct {
	Kind        Kind
	Status      int
	Message     string
	Suggestions []string
	Body        []byte
	Attempts    int
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s error: status=%d: %s", e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s error: status=%d body=%s", e.Kind, e.Status, string(e.Body))
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status (>= 400) onto a Kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status >= 500:
		return KindServer
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindClient
	}
}

// envelope is the error body produced by the scheduling backend.
type envelope struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// FromResponse builds an Error from a rejected response. The body is kept
// verbatim; message and suggestions are extracted when it is JSON.
func FromResponse(status int, body []byte) *Error {
	e := &Error{
		Kind:   ClassifyStatus(status),
		Status: status,
		Body:   body,
	}
	var env envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		e.Message = env.Message
		e.Suggestions = env.Suggestions
	}
	return e
}

// FromTransport wraps a failure where no response was received.
func FromTransport(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Retryable reports whether a failure of this kind is transient.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindServer
}

// Message returns the server-supplied message carried by err, if any.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
