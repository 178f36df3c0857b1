// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied reports that the directory refused a capability
// toggle. Directory implementations wrap their platform error so that
// errors.Is(err, ErrPermissionDenied) holds. Fatal to the search; the
// already-toggled prefix is restored before the error escapes.
var ErrPermissionDenied = errors.New("bisect: permission denied")

// ErrEntityGone reports that the entity no longer holds the
// capability (left or was removed independently). Toggle-off treats
// it as already toggled; restore skips it silently.
var ErrEntityGone = errors.New("bisect: entity gone")

// TransportError reports a probe delivery failure. Fatal to the
// round; restoration still runs before it escapes.
type TransportError struct {
	// Op names the transport operation ("send", "webhook").
	Op string

	// Err is the underlying failure.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bisect: probe %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
