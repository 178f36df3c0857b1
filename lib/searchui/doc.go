// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package searchui renders a live terminal view of a running leak
// search: the round counter, the shrinking suspect list, and the
// final verdict. It plugs into the engine as a progress sink that
// forwards events into a bubbletea program.
package searchui
