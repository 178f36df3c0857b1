// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

// kickReason is attached to every capability removal so room
// moderators can tell audit kicks from moderation.
const kickReason = "temporary capability audit, you will be re-invited"

// Directory implements bisect.Directory over a Matrix session:
// removing a capability kicks the entity from the capability room,
// restoring it re-invites. Restoration is inherently best-effort:
// the server re-admits the user only when the invite is accepted.
type Directory struct {
	session messaging.Session
	logger  *slog.Logger
}

// NewDirectory creates a Directory over an authenticated session. The
// session's user needs kick and invite power in every capability room.
func NewDirectory(session messaging.Session, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{session: session, logger: logger}
}

// RemoveCapability kicks entityID from the capability room.
func (d *Directory) RemoveCapability(ctx context.Context, entityID, capabilityID string) error {
	userID, roomID, err := parseCapabilityPair(entityID, capabilityID)
	if err != nil {
		return err
	}

	if err := d.session.KickUser(ctx, roomID, userID, kickReason); err != nil {
		return mapDirectoryError("kick", entityID, capabilityID, err)
	}
	d.logger.Debug("capability removed", "entity", entityID, "capability", capabilityID)
	return nil
}

// AddCapability re-invites entityID to the capability room.
func (d *Directory) AddCapability(ctx context.Context, entityID, capabilityID string) error {
	userID, roomID, err := parseCapabilityPair(entityID, capabilityID)
	if err != nil {
		return err
	}

	if err := d.session.InviteUser(ctx, roomID, userID); err != nil {
		return mapDirectoryError("invite", entityID, capabilityID, err)
	}
	d.logger.Debug("capability restored", "entity", entityID, "capability", capabilityID)
	return nil
}

func parseCapabilityPair(entityID, capabilityID string) (ref.UserID, ref.RoomID, error) {
	userID, err := ref.ParseUserID(entityID)
	if err != nil {
		return ref.UserID{}, ref.RoomID{}, fmt.Errorf("tracker: entity %q: %w", entityID, err)
	}
	roomID, err := ref.ParseRoomID(capabilityID)
	if err != nil {
		return ref.UserID{}, ref.RoomID{}, fmt.Errorf("tracker: capability %q: %w", capabilityID, err)
	}
	return userID, roomID, nil
}

// mapDirectoryError translates Matrix error codes onto the engine's
// sentinels. M_FORBIDDEN means the operator lacks power in the
// capability room; M_NOT_FOUND means the entity (or its membership)
// no longer exists.
func mapDirectoryError(op, entityID, capabilityID string, err error) error {
	switch {
	case messaging.IsMatrixError(err, messaging.ErrCodeForbidden):
		return fmt.Errorf("tracker: %s %s in %s: %v: %w", op, entityID, capabilityID, err, bisect.ErrPermissionDenied)
	case messaging.IsMatrixError(err, messaging.ErrCodeNotFound):
		return fmt.Errorf("tracker: %s %s in %s: %v: %w", op, entityID, capabilityID, err, bisect.ErrEntityGone)
	default:
		return fmt.Errorf("tracker: %s %s in %s: %w", op, entityID, capabilityID, err)
	}
}

var _ bisect.Directory = (*Directory)(nil)
