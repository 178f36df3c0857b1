// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/leaktrace/lib/ref"
)

const (
	// longPollTimeout is how long the homeserver holds a sync request
	// open waiting for new events (milliseconds).
	longPollTimeout = 30000

	// retryTimeout is the sync timeout used immediately after a sync
	// error, so recovery is fast (milliseconds).
	retryTimeout = 1000

	// maxSyncRetries is the number of consecutive sync failures
	// tolerated before WaitForEvent gives up.
	maxSyncRetries = 5
)

// SyncFilter controls which events a RoomWatcher receives. The zero
// value requests all event types with the server's default timeline
// limit.
type SyncFilter struct {
	// TimelineTypes restricts timeline events to these types
	// (e.g., "m.room.message"). Empty means all types.
	TimelineTypes []ref.EventType

	// TimelineLimit caps the number of timeline events per sync
	// response. Zero means server default.
	TimelineLimit int

	// ExcludeState suppresses state events from the response.
	ExcludeState bool
}

// buildInlineFilter constructs the inline JSON filter for the sync
// query. The filter scopes the response to a single room and strips
// presence and account data, which keeps long-poll responses small on
// busy homeservers.
func buildInlineFilter(roomID ref.RoomID, filter SyncFilter) (string, error) {
	timeline := map[string]any{}
	if len(filter.TimelineTypes) > 0 {
		types := make([]string, len(filter.TimelineTypes))
		for i, t := range filter.TimelineTypes {
			types[i] = t.String()
		}
		timeline["types"] = types
	}
	if filter.TimelineLimit > 0 {
		timeline["limit"] = filter.TimelineLimit
	}

	room := map[string]any{
		"rooms":    []string{roomID.String()},
		"timeline": timeline,
	}
	if filter.ExcludeState {
		room["state"] = map[string]any{"types": []string{}}
	}

	inline := map[string]any{
		"room":         room,
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}

	encoded, err := json.Marshal(inline)
	if err != nil {
		return "", fmt.Errorf("messaging: failed to encode sync filter: %w", err)
	}
	return string(encoded), nil
}

// RoomWatcher observes events arriving in a single room via /sync
// long-polling.
//
// The critical property is checkpoint-before-trigger: WatchRoom
// records the current sync position before the caller performs the
// action whose effects it wants to observe. Events that arrive after
// the checkpoint are buffered, so the watcher cannot miss an event
// that lands between the trigger and the first WaitForEvent call.
type RoomWatcher struct {
	session   Session
	roomID    ref.RoomID
	filter    string
	nextBatch string
	logger    *slog.Logger

	// pending holds events received but not yet matched by a
	// WaitForEvent predicate.
	pending []Event
}

// WatchRoom creates a RoomWatcher positioned at the current end of the
// room's timeline. It performs one immediate (timeout=0) sync to learn
// the current sync token; events sent to the room after WatchRoom
// returns are guaranteed to be delivered to WaitForEvent.
//
// Call WatchRoom BEFORE triggering the action you want to observe.
func WatchRoom(ctx context.Context, session Session, roomID ref.RoomID, filter SyncFilter, logger *slog.Logger) (*RoomWatcher, error) {
	if roomID.IsZero() {
		return nil, fmt.Errorf("messaging: cannot watch zero room ID")
	}
	if logger == nil {
		logger = slog.Default()
	}

	inlineFilter, err := buildInlineFilter(roomID, filter)
	if err != nil {
		return nil, err
	}

	initial, err := session.Sync(ctx, SyncOptions{
		Timeout:    0,
		SetTimeout: true,
		Filter:     inlineFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: initial sync for room %s failed: %w", roomID, err)
	}

	return &RoomWatcher{
		session:   session,
		roomID:    roomID,
		filter:    inlineFilter,
		nextBatch: initial.NextBatch,
		logger:    logger,
	}, nil
}

// RoomID returns the room this watcher observes.
func (w *RoomWatcher) RoomID() ref.RoomID {
	return w.roomID
}

// SyncPosition returns the current sync token. Useful for handing off
// the stream position to another watcher.
func (w *RoomWatcher) SyncPosition() string {
	return w.nextBatch
}

// WaitForEvent blocks until an event matching the predicate arrives in
// the watched room, or ctx is cancelled. Non-matching events are
// buffered and re-examined on subsequent calls, so a sequence of
// WaitForEvent calls with different predicates never drops events.
func (w *RoomWatcher) WaitForEvent(ctx context.Context, match func(Event) bool) (*Event, error) {
	// Check events already buffered from earlier syncs.
	for i, event := range w.pending {
		if match(event) {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return &event, nil
		}
	}

	syncRetries := 0
	syncTimeout := longPollTimeout
	for {
		response, err := w.session.Sync(ctx, SyncOptions{
			Since:      w.nextBatch,
			Timeout:    syncTimeout,
			SetTimeout: true,
			Filter:     w.filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("messaging: context cancelled waiting for event in room %s: %w", w.roomID, ctx.Err())
			}
			syncRetries++
			if syncRetries > maxSyncRetries {
				return nil, fmt.Errorf("messaging: sync failed %d times waiting for event in room %s: %w", syncRetries, w.roomID, err)
			}
			// A pooled connection may be poisoned after a network
			// disruption. Drop idle connections so the retry dials fresh.
			if closer, ok := w.session.(interface{ CloseIdleConnections() }); ok {
				closer.CloseIdleConnections()
			}
			w.logger.Debug("sync failed, retrying",
				"room_id", w.roomID,
				"attempt", syncRetries,
				"error", err,
			)
			syncTimeout = retryTimeout
			continue
		}
		syncRetries = 0
		syncTimeout = longPollTimeout
		w.nextBatch = response.NextBatch

		room, ok := response.Rooms.Join[w.roomID]
		if !ok {
			continue
		}
		received := len(room.State.Events) + len(room.Timeline.Events)
		if received == 0 {
			continue
		}

		w.logger.Info("received events",
			"room_id", w.roomID,
			"count", received,
			"types", eventTypes(room),
		)

		w.pending = append(w.pending, room.State.Events...)
		w.pending = append(w.pending, room.Timeline.Events...)

		for i, event := range w.pending {
			if match(event) {
				w.pending = append(w.pending[:i], w.pending[i+1:]...)
				return &event, nil
			}
		}
	}
}

func eventTypes(room JoinedRoom) string {
	var types []string
	for _, event := range room.State.Events {
		types = append(types, event.Type.String())
	}
	for _, event := range room.Timeline.Events {
		types = append(types, event.Type.String())
	}
	return strings.Join(types, ",")
}
