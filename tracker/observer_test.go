// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

var monitoredRoom = ref.MustParseRoomID("!monitored:example.org")

// messageSync builds a sync response delivering one message event in
// the monitored room.
func messageSync(next string, content map[string]any) *messaging.SyncResponse {
	return &messaging.SyncResponse{
		NextBatch: next,
		Rooms: messaging.RoomsSection{
			Join: map[ref.RoomID]messaging.JoinedRoom{
				monitoredRoom: {
					Timeline: messaging.TimelineSection{
						Events: []messaging.Event{{
							Type:    "m.room.message",
							Sender:  ref.MustParseUserID("@relay:example.org"),
							Content: content,
						}},
					},
				},
			},
		},
	}
}

// syncScript returns the given responses in order, then empty syncs.
func syncScript(responses ...*messaging.SyncResponse) func(messaging.SyncOptions) (*messaging.SyncResponse, error) {
	call := 0
	return func(messaging.SyncOptions) (*messaging.SyncResponse, error) {
		call++
		if call <= len(responses) {
			return responses[call-1], nil
		}
		return &messaging.SyncResponse{NextBatch: fmt.Sprintf("idle-%d", call)}, nil
	}
}

func TestLeakWatch_DetectsMarkerInBody(t *testing.T) {
	session := &fakeSession{
		sync: syncScript(
			&messaging.SyncResponse{NextBatch: "checkpoint"},
			messageSync("s1", map[string]any{
				"msgtype": "m.text",
				"body":    "fwd: secret doc token-abc123",
			}),
		),
	}
	observer := NewLeakObserver(session, monitoredRoom, "token-abc123", quietLogger())

	watch, err := observer.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	leaked, err := watch.Wait(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !leaked {
		t.Error("marker in body not detected")
	}
}

func TestLeakWatch_DetectsMarkerInFormattedBody(t *testing.T) {
	session := &fakeSession{
		sync: syncScript(
			&messaging.SyncResponse{NextBatch: "checkpoint"},
			messageSync("s1", map[string]any{
				"msgtype":        "m.text",
				"body":           "see attachment",
				"formatted_body": "<blockquote>token-abc123</blockquote>",
			}),
		),
	}
	observer := NewLeakObserver(session, monitoredRoom, "token-abc123", quietLogger())

	watch, err := observer.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	leaked, err := watch.Wait(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !leaked {
		t.Error("marker in formatted_body not detected")
	}
}

func TestLeakWatch_QuietDeadlineIsNotAnError(t *testing.T) {
	// Traffic without the marker keeps arriving; the deadline passing
	// means "no leak this round", not a failure.
	session := &fakeSession{
		sync: syncScript(
			&messaging.SyncResponse{NextBatch: "checkpoint"},
			messageSync("s1", map[string]any{"msgtype": "m.text", "body": "unrelated chatter"}),
		),
	}
	observer := NewLeakObserver(session, monitoredRoom, "token-abc123", quietLogger())

	watch, err := observer.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	leaked, err := watch.Wait(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("quiet deadline returned error: %v", err)
	}
	if leaked {
		t.Error("marker-less traffic reported as leak")
	}
}

func TestLeakWatch_CancelledContextIsAnError(t *testing.T) {
	session := &fakeSession{
		sync: syncScript(&messaging.SyncResponse{NextBatch: "checkpoint"}),
	}
	observer := NewLeakObserver(session, monitoredRoom, "token-abc123", quietLogger())

	watch, err := observer.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := watch.Wait(ctx, time.Minute); err == nil {
		t.Error("cancelled context reported as a clean no-leak result")
	}
}

func TestLeakObserver_ChecksPointBeforeDelivering(t *testing.T) {
	// The checkpoint sync must happen inside Watch, before the caller
	// probes, so Watch alone consumes exactly one sync.
	session := &fakeSession{
		sync: syncScript(&messaging.SyncResponse{NextBatch: "checkpoint"}),
	}
	observer := NewLeakObserver(session, monitoredRoom, "token-abc123", quietLogger())

	if _, err := observer.Watch(context.Background()); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if session.syncCalls != 1 {
		t.Errorf("Watch made %d sync calls, want 1 checkpoint sync", session.syncCalls)
	}
}
