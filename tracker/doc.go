// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracker binds the bisection engine to Matrix. It implements
// the engine's collaborator contracts over messaging sessions —
// capability toggling as kick/invite on capability rooms, probing as
// message send or webhook POST, leak observation as a checkpointed
// room watch — and orchestrates a full search: connect identities,
// snapshot the suspect population, run the engine, report the verdict.
package tracker
