// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// CapabilityToggler implements Toggler over a Directory. Toggle and
// restore calls fan out one goroutine per entity; within an entity,
// capabilities are processed in order.
type CapabilityToggler struct {
	directory Directory
	logger    *slog.Logger
}

// NewCapabilityToggler creates a toggler over the given directory.
func NewCapabilityToggler(directory Directory, logger *slog.Logger) *CapabilityToggler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapabilityToggler{directory: directory, logger: logger}
}

// ToggleOff removes every capability of every entity in the batch.
// The returned snapshot records exactly what was removed. If any
// removal fails (other than the entity already being gone), everything
// recorded so far is restored best-effort and the joined error returns.
func (t *CapabilityToggler) ToggleOff(ctx context.Context, batch []Entity) (Snapshot, error) {
	var (
		mu       sync.Mutex
		snapshot = make(Snapshot)
		failures []error
		group    sync.WaitGroup
	)

	for _, entity := range batch {
		group.Add(1)
		go func() {
			defer group.Done()

			var removed []string
			var failure error
			for _, capability := range entity.Capabilities {
				err := t.directory.RemoveCapability(ctx, entity.ID, capability)
				switch {
				case err == nil:
					removed = append(removed, capability)
				case errors.Is(err, ErrEntityGone):
					// Already lacks the capability; nothing to restore.
					t.logger.Debug("entity gone during toggle-off",
						"entity", entity.ID,
						"capability", capability,
					)
				default:
					failure = fmt.Errorf("toggling off %s for %s: %w", capability, entity.ID, err)
				}
				if failure != nil {
					break
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if len(removed) > 0 {
				snapshot[entity.ID] = removed
			}
			if failure != nil {
				failures = append(failures, failure)
			}
		}()
	}
	group.Wait()

	if len(failures) > 0 {
		// Put back whatever the batch managed to remove before the
		// error escapes; the caller aborts the round.
		t.Restore(context.WithoutCancel(ctx), snapshot)
		return nil, errors.Join(failures...)
	}
	return snapshot, nil
}

// Restore returns the capabilities recorded in the snapshot. Failures
// are logged per entity and never escalate; gone entities are skipped
// silently.
func (t *CapabilityToggler) Restore(ctx context.Context, snapshot Snapshot) {
	var group sync.WaitGroup
	for entityID, capabilities := range snapshot {
		group.Add(1)
		go func() {
			defer group.Done()
			for _, capability := range capabilities {
				err := t.directory.AddCapability(ctx, entityID, capability)
				if err == nil || errors.Is(err, ErrEntityGone) {
					continue
				}
				t.logger.Error("capability restore failed",
					"entity", entityID,
					"capability", capability,
					"error", err,
				)
			}
		}()
	}
	group.Wait()
}

var _ Toggler = (*CapabilityToggler)(nil)
