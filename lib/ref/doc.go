// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable Matrix identifier
// value types: user IDs, room IDs, room aliases, event IDs, and event
// types.
//
// Raw identifier strings arrive from configuration files and Matrix
// API responses; they are parsed into ref types at the boundary and
// stay validated from then on. All constructors return errors for
// structurally invalid input. Once constructed, a ref is immutable.
//
// JSON and CBOR marshaling use the canonical Matrix string form via
// encoding.TextMarshaler.
package ref
