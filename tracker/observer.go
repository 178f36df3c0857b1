// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

// LeakObserver watches the monitored room for the probe marker. Each
// Watch call checkpoints the room's sync position, so only events
// arriving after the checkpoint (and therefore after the upcoming
// probe) can satisfy the leak predicate.
type LeakObserver struct {
	session messaging.Session
	room    ref.RoomID
	marker  string
	logger  *slog.Logger
}

// NewLeakObserver creates an observer for the monitored room. marker
// is the per-search token appended to the probe text.
func NewLeakObserver(session messaging.Session, room ref.RoomID, marker string, logger *slog.Logger) *LeakObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeakObserver{session: session, room: room, marker: marker, logger: logger}
}

// Watch checkpoints the monitored room. Call before probing.
func (o *LeakObserver) Watch(ctx context.Context) (bisect.Watch, error) {
	watcher, err := messaging.WatchRoom(ctx, o.session, o.room, messaging.SyncFilter{
		TimelineTypes: []ref.EventType{"m.room.message"},
		ExcludeState:  true,
	}, o.logger)
	if err != nil {
		return nil, fmt.Errorf("tracker: watching monitored room: %w", err)
	}
	return &leakWatch{watcher: watcher, marker: o.marker}, nil
}

type leakWatch struct {
	watcher *messaging.RoomWatcher
	marker  string
}

// Wait blocks until a message carrying the marker arrives or the
// timeout passes. A quiet deadline is (false, nil): the absence of a
// leak is a result, not a failure.
func (w *leakWatch) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := w.watcher.WaitForEvent(waitCtx, w.matches)
	if err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return false, nil
		}
		return false, fmt.Errorf("tracker: observing monitored room: %w", err)
	}
	return true, nil
}

// matches is the leak predicate: the marker as a plain substring of
// the message body or its formatted rendering. Content identifies the
// leak, not the sender: relay bots repost under their own identity.
func (w *leakWatch) matches(event messaging.Event) bool {
	if event.Type != "m.room.message" {
		return false
	}
	if body, ok := event.Content["body"].(string); ok && strings.Contains(body, w.marker) {
		return true
	}
	if formatted, ok := event.Content["formatted_body"].(string); ok && strings.Contains(formatted, w.marker) {
		return true
	}
	return false
}

var _ bisect.Observer = (*LeakObserver)(nil)
