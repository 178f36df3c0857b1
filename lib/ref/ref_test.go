// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"testing"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"@alice:example.org", false},
		{"@a:b", false},
		{"@svc/bot:example.org", false},
		// Invalid: empty.
		{"", true},
		// Invalid: wrong sigil.
		{"alice:example.org", true},
		{"#alice:example.org", true},
		{"!alice:example.org", true},
		// Invalid: missing server.
		{"@alice", true},
		{"@alice:", true},
		// Invalid: empty localpart.
		{"@:example.org", true},
	}

	for _, test := range tests {
		_, err := ParseUserID(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseUserID(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
		}
	}
}

func TestUserIDParts(t *testing.T) {
	u := MustParseUserID("@alice:example.org")
	if u.Localpart() != "alice" {
		t.Errorf("Localpart() = %q, want %q", u.Localpart(), "alice")
	}
	if u.Server() != "example.org" {
		t.Errorf("Server() = %q, want %q", u.Server(), "example.org")
	}

	built := MatrixUserID("alice", "example.org")
	if built != u {
		t.Errorf("MatrixUserID = %q, want %q", built, u)
	}
}

func TestUserIDJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		User UserID `json:"user"`
	}
	original := wrapper{User: MustParseUserID("@alice:example.org")}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"user":"@alice:example.org"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var decoded wrapper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.User != original.User {
		t.Errorf("round-trip: got %q, want %q", decoded.User, original.User)
	}
}

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"!abc123:example.org", false},
		{"!x:y", false},
		// Invalid: empty.
		{"", true},
		// Invalid: wrong sigil.
		{"abc123:example.org", true},
		{"#abc123:example.org", true},
		// Invalid: missing server.
		{"!abc123", true},
		{"!abc123:", true},
		// Invalid: empty local part.
		{"!:example.org", true},
	}

	for _, test := range tests {
		_, err := ParseRoomID(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseRoomID(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
		}
	}
}

func TestParseRoomAlias(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"#ops:example.org", false},
		{"#team/leaks:example.org", false},
		{"", true},
		{"ops:example.org", true},
		{"!ops:example.org", true},
		{"#ops", true},
		{"#:example.org", true},
		{"#ops:", true},
	}

	for _, test := range tests {
		_, err := ParseRoomAlias(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseRoomAlias(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
		}
	}

	alias := MustParseRoomAlias("#ops:example.org")
	if alias.Localpart() != "ops" {
		t.Errorf("Localpart() = %q, want %q", alias.Localpart(), "ops")
	}
	if alias.Server() != "example.org" {
		t.Errorf("Server() = %q, want %q", alias.Server(), "example.org")
	}
}

func TestZeroValues(t *testing.T) {
	var user UserID
	var room RoomID
	var alias RoomAlias
	var event EventID

	if !user.IsZero() || !room.IsZero() || !alias.IsZero() || !event.IsZero() {
		t.Error("zero values should report IsZero()")
	}
	if user.String() != "" || room.String() != "" || alias.String() != "" || event.String() != "" {
		t.Error("zero values should String() to empty")
	}
}

func TestParseEventID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		// Valid: room version 4+ hash-based IDs.
		{"$abc123xyz", false},
		{"$VGhpcyBpcyBhIHRlc3Q", false},
		// Valid: legacy format with server.
		{"$something:server.local", false},
		// Invalid: empty.
		{"", true},
		// Invalid: wrong sigil.
		{"!abc123", true},
		{"@abc123", true},
		{"abc123", true},
		// Invalid: only the prefix.
		{"$", true},
	}

	for _, test := range tests {
		_, err := ParseEventID(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseEventID(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
		}
	}
}

func TestMustParseUserIDPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseUserID should panic on invalid input")
		}
	}()
	MustParseUserID("not-a-user-id")
}
