// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession implements the messaging.Session surface the tracker
// touches. Unset hooks fall through to permissive defaults; calling an
// operation the test did not expect panics via the embedded nil.
type fakeSession struct {
	messaging.Session

	userID  ref.UserID
	whoAmI  func(ctx context.Context) (ref.UserID, error)
	kick    func(roomID ref.RoomID, target ref.UserID, reason string) error
	invite  func(roomID ref.RoomID, target ref.UserID) error
	send    func(roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error)
	sync    func(options messaging.SyncOptions) (*messaging.SyncResponse, error)
	members  map[ref.RoomID][]messaging.RoomMember
	aliases  map[string]ref.RoomID
	profiles map[ref.UserID]messaging.Profile

	joinedRooms     []ref.RoomID
	sentBodies      []string
	profileRequests []ref.UserID
	syncCalls       int
	closeCalls      int
}

func (f *fakeSession) UserID() ref.UserID { return f.userID }

func (f *fakeSession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	if f.whoAmI != nil {
		return f.whoAmI(ctx)
	}
	return f.userID, nil
}

func (f *fakeSession) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	f.joinedRooms = append(f.joinedRooms, roomID)
	return roomID, nil
}

func (f *fakeSession) KickUser(ctx context.Context, roomID ref.RoomID, target ref.UserID, reason string) error {
	if f.kick != nil {
		return f.kick(roomID, target, reason)
	}
	return nil
}

func (f *fakeSession) InviteUser(ctx context.Context, roomID ref.RoomID, target ref.UserID) error {
	if f.invite != nil {
		return f.invite(roomID, target)
	}
	return nil
}

func (f *fakeSession) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	f.sentBodies = append(f.sentBodies, content.Body)
	if f.send != nil {
		return f.send(roomID, content)
	}
	return ref.EventID{}, nil
}

func (f *fakeSession) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.syncCalls++
	if f.sync != nil {
		return f.sync(options)
	}
	return &messaging.SyncResponse{NextBatch: fmt.Sprintf("batch-%d", f.syncCalls)}, nil
}

func (f *fakeSession) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	roomID, ok := f.aliases[alias.String()]
	if !ok {
		return ref.RoomID{}, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, Message: "unknown alias"}
	}
	return roomID, nil
}

func (f *fakeSession) GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]messaging.RoomMember, error) {
	members, ok := f.members[roomID]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeForbidden, Message: "not in room"}
	}
	return members, nil
}

func (f *fakeSession) GetProfile(ctx context.Context, userID ref.UserID) (messaging.Profile, error) {
	f.profileRequests = append(f.profileRequests, userID)
	return f.profiles[userID], nil
}

func (f *fakeSession) Close() error {
	f.closeCalls++
	return nil
}

var _ messaging.Session = (*fakeSession)(nil)
