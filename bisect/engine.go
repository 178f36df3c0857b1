// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"slices"
	"time"

	"github.com/bureau-foundation/leaktrace/lib/clock"
)

// Engine runs the bisection search. All fields except Sink and Logger
// are required.
type Engine struct {
	// Toggler acquires and releases capability batches.
	Toggler Toggler

	// Prober emits the probe artifact.
	Prober Prober

	// Observer checkpoints the monitored destination.
	Observer Observer

	// Sink receives progress events; may be nil.
	Sink ProgressSink

	// Clock drives the settle delay.
	Clock clock.Clock

	// Settle is the wait between toggling and probing, letting the
	// toggle propagate through the directory.
	Settle time.Duration

	// Timeout bounds each round's wait for the leak signal.
	Timeout time.Duration

	// Logger may be nil; slog.Default() is used then.
	Logger *slog.Logger
}

// Locate isolates the leaking entity among the suspects. An empty
// suspect list returns (nil, nil) without touching the directory.
//
// Rounds run strictly one at a time: each round's population depends
// on the previous round's observation. Every round restores the
// capabilities it removed before its result is acted on, so a fatal
// error never leaves entities degraded.
func (e *Engine) Locate(ctx context.Context, suspects []Entity) (*Verdict, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(suspects) == 0 {
		logger.Info("no suspects, nothing to locate")
		return nil, nil
	}

	current := slices.Clone(suspects)
	total := roundBound(len(current))
	step := 0

	logger.Info("starting bisection",
		"suspects", len(current),
		"round_bound", total,
	)

	for len(current) > 1 {
		step++
		half := current[:len(current)/2]
		e.emit(Event{
			Step:      step,
			Total:     total,
			Remaining: len(current),
			Message: fmt.Sprintf("round %d/%d: silencing %d of %d suspects",
				step, total, len(half), len(current)),
			Names: names(current),
		})

		leaked, err := e.round(ctx, half)
		if err != nil {
			return nil, e.abort(step, total, current, err)
		}

		// Leak still observed with the first half silenced means the
		// leaker kept its capability: it is in the second half.
		if leaked {
			current = current[len(current)/2:]
		} else {
			current = half
		}
		logger.Info("round complete",
			"step", step,
			"leaked", leaked,
			"remaining", len(current),
		)
	}

	// Confirmation: one terminal non-recursive round against the
	// isolated entity. Signal with its capability removed contradicts
	// the single-leaker assumption.
	step++
	candidate := current[0]
	e.emit(Event{
		Step:      step,
		Total:     total,
		Remaining: 1,
		Message:   fmt.Sprintf("round %d/%d: confirming %s", step, total, candidate.Name()),
		Names:     names(current),
	})

	leaked, err := e.round(ctx, current)
	if err != nil {
		return nil, e.abort(step, total, current, err)
	}

	confirmed := !leaked
	logger.Info("bisection finished",
		"entity", candidate.ID,
		"confirmed", confirmed,
		"rounds", step,
	)
	return verdictFor(candidate, confirmed), nil
}

// round toggles the batch off, settles, probes, observes, and
// restores. Restoration completes before the observation result is
// returned, on success, failure, and cancellation alike.
func (e *Engine) round(ctx context.Context, batch []Entity) (bool, error) {
	snapshot, err := e.Toggler.ToggleOff(ctx, batch)
	if err != nil {
		return false, err
	}

	restored := false
	restore := func() {
		if restored {
			return
		}
		restored = true
		// Restoration runs even when the round's context is cancelled.
		e.Toggler.Restore(context.WithoutCancel(ctx), snapshot)
	}
	defer restore()

	e.Clock.Sleep(e.Settle)

	// Checkpoint before probing: an instantly-relayed leak must not
	// slip past the observation window.
	watch, err := e.Observer.Watch(ctx)
	if err != nil {
		return false, err
	}
	if err := e.Prober.Probe(ctx); err != nil {
		return false, err
	}

	leaked, err := watch.Wait(ctx, e.Timeout)
	restore()
	return leaked, err
}

// abort emits a terminal progress event for a fatal round error.
func (e *Engine) abort(step, total int, current []Entity, err error) error {
	e.emit(Event{
		Step:      step,
		Total:     total,
		Remaining: len(current),
		Message:   "search aborted: " + err.Error(),
		Names:     names(current),
	})
	return err
}

func (e *Engine) emit(event Event) {
	if e.Sink != nil {
		e.Sink.Progress(event)
	}
}

// roundBound is the fixed round budget: ceil(log2 n) bisection rounds
// plus one confirmation round.
func roundBound(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n-1)) + 1
}
