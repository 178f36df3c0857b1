// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

import (
	"context"
	"time"
)

// Directory mutates capability holdings in the external directory.
// Implementations map platform failures onto the package sentinels:
// permission refusals satisfy errors.Is(err, ErrPermissionDenied),
// vanished entities errors.Is(err, ErrEntityGone).
type Directory interface {
	// RemoveCapability takes capabilityID away from entityID.
	RemoveCapability(ctx context.Context, entityID, capabilityID string) error

	// AddCapability gives capabilityID back to entityID.
	AddCapability(ctx context.Context, entityID, capabilityID string) error
}

// Toggler batches capability removal and restoration for a round.
// The engine acquires a batch with ToggleOff and releases it with
// Restore; the two calls bracket every observation.
type Toggler interface {
	// ToggleOff removes every capability from every entity in the
	// batch. On failure, everything already removed has been restored
	// best-effort before the error returns.
	ToggleOff(ctx context.Context, batch []Entity) (Snapshot, error)

	// Restore returns the capabilities recorded in the snapshot.
	// Failures are logged per entity, never escalated: leaving an
	// entity without its capability is worse than any single failed
	// invite.
	Restore(ctx context.Context, snapshot Snapshot)
}

// Prober emits the fixed probe artifact for this search.
type Prober interface {
	Probe(ctx context.Context) error
}

// Observer produces Watch checkpoints on the monitored destination.
// Watch MUST be called before Probe so an immediately-relayed leak
// cannot slip past the observation window.
type Observer interface {
	Watch(ctx context.Context) (Watch, error)
}

// Watch is one checkpointed observation of the monitored destination.
type Watch interface {
	// Wait blocks until the probe marker arrives (true), the timeout
	// passes (false, nil — a quiet deadline is a result, not an
	// error), or observation itself fails.
	Wait(ctx context.Context, timeout time.Duration) (bool, error)
}

// ProgressSink receives progress events and the terminal verdict.
// Sinks are write-only: nothing they do influences control flow.
type ProgressSink interface {
	// Progress reports one search step.
	Progress(event Event)

	// Result reports the terminal verdict; nil means no result.
	Result(verdict *Verdict)
}
