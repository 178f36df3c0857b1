// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/bureau-foundation/leaktrace/lib/ref"
)

// Session is the interface for authenticated Matrix operations. It
// exists so that higher layers (directory control, probing, leak
// observation) can be tested against fakes without a homeserver.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID of the session.
	UserID() ref.UserID

	// WhoAmI validates the access token and returns the user ID.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// JoinRoom joins a room by ID.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// InviteUser invites a user to a room.
	InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error

	// KickUser removes a user from a room with an optional reason.
	KickUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error

	// SendMessage sends a message event to a room.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)

	// SendEvent sends an event of any type to a room.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error)

	// Sync performs an incremental sync against the homeserver.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// ResolveAlias resolves a room alias to a room ID.
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)

	// GetRoomMembers returns the members of a room.
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error)

	// GetProfile fetches a user's display name and avatar URL.
	GetProfile(ctx context.Context, userID ref.UserID) (Profile, error)

	// Close releases session resources, including protected token memory.
	Close() error
}

var _ Session = (*DirectSession)(nil)
