// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// Matrix error codes this client branches on. M_FORBIDDEN and
// M_NOT_FOUND drive the capability directory's error mapping;
// M_UNKNOWN_TOKEN shows up while a freshly provisioned listener is
// still propagating.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnknown       = "M_UNKNOWN"
)

// MatrixError is a structured error response from the homeserver. The
// JSON tags match the client-server API error body ({"errcode": ...,
// "error": ...}); StatusCode is filled in from the HTTP response.
//
// Callers that need the code should prefer IsMatrixError over
// unwrapping by hand.
type MatrixError struct {
	Code       string `json:"errcode"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsMatrixError reports whether err wraps a *MatrixError carrying the
// given error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	return errors.As(err, &matrixErr) && matrixErr.Code == code
}
