// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

// Entity is one member of the suspect population.
type Entity struct {
	// ID is the directory-level identifier (a Matrix user ID).
	ID string

	// Username is the login name, when distinct from ID.
	Username string

	// DisplayName is the human-facing name, possibly empty.
	DisplayName string

	// AvatarURL is the profile image reference, possibly empty.
	AvatarURL string

	// Capabilities are the capability IDs this entity held when the
	// suspect population was snapshotted.
	Capabilities []string
}

// Name returns the best human-facing label for the entity.
func (e Entity) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if e.Username != "" {
		return e.Username
	}
	return e.ID
}

// Snapshot records which capabilities were removed from which
// entities during one toggle-off, keyed by entity ID. A snapshot is
// produced by ToggleOff and consumed exactly once by Restore.
type Snapshot map[string][]string
