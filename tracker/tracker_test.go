// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"slices"
	"testing"

	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

func joinedMember(id, displayName string) messaging.RoomMember {
	return messaging.RoomMember{
		UserID:      ref.MustParseUserID(id),
		DisplayName: displayName,
		Membership:  "join",
	}
}

func TestResolveRoom(t *testing.T) {
	session := &fakeSession{
		aliases: map[string]ref.RoomID{
			"#ops:example.org": ref.MustParseRoomID("!resolved:example.org"),
		},
	}

	t.Run("alias", func(t *testing.T) {
		roomID, err := resolveRoom(context.Background(), session, "#ops:example.org")
		if err != nil {
			t.Fatalf("resolveRoom: %v", err)
		}
		if roomID.String() != "!resolved:example.org" {
			t.Errorf("resolved to %s, want !resolved:example.org", roomID)
		}
	})

	t.Run("room ID passes through", func(t *testing.T) {
		roomID, err := resolveRoom(context.Background(), session, "!direct:example.org")
		if err != nil {
			t.Fatalf("resolveRoom: %v", err)
		}
		if roomID.String() != "!direct:example.org" {
			t.Errorf("resolved to %s, want !direct:example.org", roomID)
		}
	})

	t.Run("unknown alias", func(t *testing.T) {
		if _, err := resolveRoom(context.Background(), session, "#ghost:example.org"); err == nil {
			t.Error("unknown alias resolved without error")
		}
	})

	t.Run("malformed reference", func(t *testing.T) {
		if _, err := resolveRoom(context.Background(), session, "garbage"); err == nil {
			t.Error("malformed room reference accepted")
		}
	})
}

func TestSnapshotSuspects(t *testing.T) {
	groupRoom := ref.MustParseRoomID("!group:example.org")
	vaultRoom := ref.MustParseRoomID("!vault:example.org")
	signingRoom := ref.MustParseRoomID("!signing:example.org")

	session := &fakeSession{
		userID: ref.MustParseUserID("@operator:example.org"),
		members: map[ref.RoomID][]messaging.RoomMember{
			groupRoom: {
				joinedMember("@alice:example.org", "Alice"),
				joinedMember("@bob:example.org", "Bob"),
				joinedMember("@carol:example.org", ""),
				joinedMember("@operator:example.org", "Operator"),
				// Left members are not suspects even if the capability
				// rooms still list them.
				{UserID: ref.MustParseUserID("@dave:example.org"), Membership: "leave"},
			},
			vaultRoom: {
				joinedMember("@alice:example.org", "Alice"),
				joinedMember("@carol:example.org", ""),
				joinedMember("@dave:example.org", "Dave"),
			},
			signingRoom: {
				joinedMember("@alice:example.org", "Alice"),
				// Invited but not joined: not yet a holder.
				{UserID: ref.MustParseUserID("@bob:example.org"), Membership: "invite"},
			},
		},
	}

	tracker := New(nil, nil, nil, quietLogger())
	identities := &Identities{Sender: session, Listener: session}
	rooms := &searchRooms{
		group:        groupRoom,
		capabilities: []ref.RoomID{vaultRoom, signingRoom},
	}

	suspects, err := tracker.snapshotSuspects(context.Background(), identities, rooms)
	if err != nil {
		t.Fatalf("snapshotSuspects: %v", err)
	}

	var ids []string
	for _, suspect := range suspects {
		ids = append(ids, suspect.ID)
	}
	slices.Sort(ids)
	want := []string{"@alice:example.org", "@carol:example.org"}
	if !slices.Equal(ids, want) {
		t.Fatalf("suspects %v, want %v", ids, want)
	}

	for _, suspect := range suspects {
		switch suspect.ID {
		case "@alice:example.org":
			if len(suspect.Capabilities) != 2 {
				t.Errorf("alice holds %v, want both capability rooms", suspect.Capabilities)
			}
			if suspect.Username != "alice" {
				t.Errorf("alice username %q", suspect.Username)
			}
		case "@carol:example.org":
			if len(suspect.Capabilities) != 1 || suspect.Capabilities[0] != vaultRoom.String() {
				t.Errorf("carol holds %v, want only the vault room", suspect.Capabilities)
			}
			// No display name: Name() falls back to the username.
			if suspect.Name() != "carol" {
				t.Errorf("carol Name() = %q, want carol", suspect.Name())
			}
		}
	}
}

func TestSnapshotSuspects_FetchesMissingDisplayName(t *testing.T) {
	groupRoom := ref.MustParseRoomID("!group:example.org")
	vaultRoom := ref.MustParseRoomID("!vault:example.org")
	carol := ref.MustParseUserID("@carol:example.org")

	session := &fakeSession{
		userID: ref.MustParseUserID("@operator:example.org"),
		members: map[ref.RoomID][]messaging.RoomMember{
			groupRoom: {
				joinedMember("@alice:example.org", "Alice"),
				joinedMember("@carol:example.org", ""),
			},
			vaultRoom: {
				joinedMember("@alice:example.org", "Alice"),
				joinedMember("@carol:example.org", ""),
			},
		},
		profiles: map[ref.UserID]messaging.Profile{
			carol: {DisplayName: "Carol", AvatarURL: "mxc://example.org/carol"},
		},
	}

	tracker := New(nil, nil, nil, quietLogger())
	identities := &Identities{Sender: session, Listener: session}
	rooms := &searchRooms{group: groupRoom, capabilities: []ref.RoomID{vaultRoom}}

	suspects, err := tracker.snapshotSuspects(context.Background(), identities, rooms)
	if err != nil {
		t.Fatalf("snapshotSuspects: %v", err)
	}

	for _, suspect := range suspects {
		switch suspect.ID {
		case "@carol:example.org":
			if suspect.DisplayName != "Carol" {
				t.Errorf("carol display name %q, want Carol from the profile", suspect.DisplayName)
			}
			if suspect.AvatarURL != "mxc://example.org/carol" {
				t.Errorf("carol avatar %q", suspect.AvatarURL)
			}
		case "@alice:example.org":
			if suspect.DisplayName != "Alice" {
				t.Errorf("alice display name %q", suspect.DisplayName)
			}
		}
	}

	// Only the member with a missing display name triggers a lookup.
	if len(session.profileRequests) != 1 || session.profileRequests[0] != carol {
		t.Errorf("profile requests %v, want exactly carol", session.profileRequests)
	}
}

func TestSnapshotSuspects_ExcludesListenerIdentity(t *testing.T) {
	groupRoom := ref.MustParseRoomID("!group:example.org")
	vaultRoom := ref.MustParseRoomID("!vault:example.org")

	sender := &fakeSession{
		userID: ref.MustParseUserID("@sender:example.org"),
		members: map[ref.RoomID][]messaging.RoomMember{
			groupRoom: {
				joinedMember("@sender:example.org", ""),
				joinedMember("@listener:example.org", ""),
				joinedMember("@alice:example.org", "Alice"),
			},
			vaultRoom: {
				joinedMember("@sender:example.org", ""),
				joinedMember("@listener:example.org", ""),
				joinedMember("@alice:example.org", "Alice"),
			},
		},
	}
	listener := &fakeSession{userID: ref.MustParseUserID("@listener:example.org")}

	tracker := New(nil, nil, nil, quietLogger())
	identities := &Identities{Sender: sender, Listener: listener}
	rooms := &searchRooms{group: groupRoom, capabilities: []ref.RoomID{vaultRoom}}

	suspects, err := tracker.snapshotSuspects(context.Background(), identities, rooms)
	if err != nil {
		t.Fatalf("snapshotSuspects: %v", err)
	}
	if len(suspects) != 1 || suspects[0].ID != "@alice:example.org" {
		t.Fatalf("suspects %v, want only alice", suspects)
	}
}
