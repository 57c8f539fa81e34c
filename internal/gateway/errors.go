// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ErrorKind classifies a gateway failure.
type ErrorKind int

const (
	// KindUnknown covers malformed responses and anything unexpected.
	KindUnknown ErrorKind = iota

	// KindServer means the server answered with a non-2xx status.
	KindServer

	// KindConnection means no response arrived (dial, DNS, timeout, cancel).
	KindConnection
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// unknownErrorMessage is shown for failures that carry no usable detail.
const unknownErrorMessage = "An unknown error occurred while requesting the chatbot."

// Error is the only error type the gateway returns. Its message is safe to
// show to the user verbatim.
type Error struct {
	Kind   ErrorKind
	Status int    // HTTP status; zero unless Kind is KindServer
	Detail string // server detail or transport cause

	// Err is the underlying cause, kept for errors.Is/As and logs.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		return fmt.Sprintf("Chatbot server error (%d): %s", e.Status, e.Detail)
	case KindConnection:
		return fmt.Sprintf("Chatbot server connection failed: %s", e.Detail)
	default:
		return unknownErrorMessage
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// serverError builds a KindServer error from a response body. The detail is
// the body's "detail" field when present, otherwise the transport's failure
// text.
func serverError(status int, body []byte) *Error {
	return &Error{
		Kind:   KindServer,
		Status: status,
		Detail: extractDetail(status, body),
	}
}

// connectionError wraps a transport failure.
func connectionError(err error) *Error {
	return &Error{
		Kind:   KindConnection,
		Detail: transportCause(err),
		Err:    err,
	}
}

// unknownError wraps a decoding or protocol failure.
func unknownError(err error) *Error {
	return &Error{Kind: KindUnknown, Err: err}
}

// extractDetail reads {"detail": ...} from an error body. Non-string details
// (FastAPI validation errors are arrays) are rendered as compact JSON.
func extractDetail(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 && string(envelope.Detail) != "null" {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, envelope.Detail); err == nil {
			return compact.String()
		}
		return string(envelope.Detail)
	}

	return statusFailure(status)
}

// statusFailure is the transport's own message for a non-2xx response, used
// when the body carries no detail.
func statusFailure(status int) string {
	return fmt.Sprintf("Request failed with status code %d", status)
}

// transportCause strips the method and URL net/http prepends to transport
// errors so the message stays short.
func transportCause(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
