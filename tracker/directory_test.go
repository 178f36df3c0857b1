// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

func TestDirectory_RemoveCapability(t *testing.T) {
	var gotRoom ref.RoomID
	var gotTarget ref.UserID
	var gotReason string
	session := &fakeSession{
		kick: func(roomID ref.RoomID, target ref.UserID, reason string) error {
			gotRoom, gotTarget, gotReason = roomID, target, reason
			return nil
		},
	}
	directory := NewDirectory(session, quietLogger())

	err := directory.RemoveCapability(context.Background(), "@alice:example.org", "!vault:example.org")
	if err != nil {
		t.Fatalf("RemoveCapability: %v", err)
	}
	if gotRoom.String() != "!vault:example.org" {
		t.Errorf("kicked from %s, want !vault:example.org", gotRoom)
	}
	if gotTarget.String() != "@alice:example.org" {
		t.Errorf("kicked %s, want @alice:example.org", gotTarget)
	}
	if gotReason != kickReason {
		t.Errorf("reason %q, want %q", gotReason, kickReason)
	}
}

func TestDirectory_AddCapability(t *testing.T) {
	invited := false
	session := &fakeSession{
		invite: func(roomID ref.RoomID, target ref.UserID) error {
			invited = true
			return nil
		},
	}
	directory := NewDirectory(session, quietLogger())

	if err := directory.AddCapability(context.Background(), "@alice:example.org", "!vault:example.org"); err != nil {
		t.Fatalf("AddCapability: %v", err)
	}
	if !invited {
		t.Error("InviteUser was not called")
	}
}

func TestDirectory_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		sentinel error
	}{
		{"forbidden maps to permission denied", messaging.ErrCodeForbidden, bisect.ErrPermissionDenied},
		{"not found maps to entity gone", messaging.ErrCodeNotFound, bisect.ErrEntityGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{
				kick: func(ref.RoomID, ref.UserID, string) error {
					return &messaging.MatrixError{Code: tt.code, Message: "nope", StatusCode: 403}
				},
			}
			directory := NewDirectory(session, quietLogger())

			err := directory.RemoveCapability(context.Background(), "@alice:example.org", "!vault:example.org")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error %v does not wrap %v", err, tt.sentinel)
			}
		})
	}
}

func TestDirectory_UnmappedErrorPassesThrough(t *testing.T) {
	serverErr := &messaging.MatrixError{Code: messaging.ErrCodeLimitExceeded, Message: "slow down", StatusCode: 429}
	session := &fakeSession{
		invite: func(ref.RoomID, ref.UserID) error { return serverErr },
	}
	directory := NewDirectory(session, quietLogger())

	err := directory.AddCapability(context.Background(), "@alice:example.org", "!vault:example.org")
	if errors.Is(err, bisect.ErrPermissionDenied) || errors.Is(err, bisect.ErrEntityGone) {
		t.Fatalf("rate limit error was mapped to a sentinel: %v", err)
	}
	var matrixErr *messaging.MatrixError
	if !errors.As(err, &matrixErr) {
		t.Fatalf("original Matrix error not preserved: %v", err)
	}
}

func TestDirectory_RejectsMalformedIDs(t *testing.T) {
	directory := NewDirectory(&fakeSession{}, quietLogger())

	if err := directory.RemoveCapability(context.Background(), "not-a-user", "!vault:example.org"); err == nil {
		t.Error("malformed entity ID accepted")
	}
	if err := directory.RemoveCapability(context.Background(), "@alice:example.org", "not-a-room"); err == nil {
		t.Error("malformed capability ID accepted")
	}
}
