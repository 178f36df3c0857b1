// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the subset of the Matrix client-server API
// that leak isolation needs: authentication, room membership control
// (invite, kick), message sending, profile lookup, and incremental
// /sync with long-polling.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client that handles password login, returning authenticated
// [DirectSession] values. Client holds the homeserver URL and HTTP
// transport, shared across all sessions derived from it.
//
// [DirectSession] wraps a Client with an access token for
// authenticated operations. Sessions are lightweight (a pointer to the
// parent Client plus an access token in mmap-backed secret.Buffer
// memory). The access token is locked against swap and excluded from
// core dumps; callers must call Close to release the protected memory.
//
// [RoomWatcher] captures a position in the /sync stream for one room
// BEFORE an action is triggered, then delivers the events that arrive
// after the checkpoint. This ordering is what makes probe observation
// race-free: checkpoint, send the probe, wait.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status
// code. [IsMatrixError] tests for a specific error code. Request URLs
// are built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded characters
// (such as room aliases with slashes).
package messaging
