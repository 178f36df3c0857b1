// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

// Event is one progress report from the search.
type Event struct {
	// Step is the 1-based round number.
	Step int `json:"step" cbor:"step"`

	// Total is the fixed round bound, ceil(log2 n)+1, computed once
	// from the initial population.
	Total int `json:"total" cbor:"total"`

	// Remaining is the current suspect count.
	Remaining int `json:"remaining" cbor:"remaining"`

	// Message is a human-readable description of the step.
	Message string `json:"message" cbor:"message"`

	// Names lists the remaining suspects' display names.
	Names []string `json:"names" cbor:"names"`
}

// Verdict identifies the isolated leaker.
type Verdict struct {
	ID           string   `json:"id" cbor:"id"`
	Username     string   `json:"username" cbor:"username"`
	DisplayName  string   `json:"display_name" cbor:"display_name"`
	Avatar       string   `json:"avatar" cbor:"avatar"`
	Capabilities []string `json:"capabilities" cbor:"capabilities"`

	// Confirmed is true when the confirmation round observed silence
	// with the leaker's capability removed. False means the
	// single-leaker assumption is contradicted for this run.
	Confirmed bool `json:"confirmed" cbor:"confirmed"`
}

// verdictFor builds the verdict for an isolated entity.
func verdictFor(entity Entity, confirmed bool) *Verdict {
	return &Verdict{
		ID:           entity.ID,
		Username:     entity.Username,
		DisplayName:  entity.DisplayName,
		Avatar:       entity.AvatarURL,
		Capabilities: entity.Capabilities,
		Confirmed:    confirmed,
	}
}

// names extracts the display labels for a suspect list.
func names(entities []Entity) []string {
	result := make([]string, len(entities))
	for i, entity := range entities {
		result[i] = entity.Name()
	}
	return result
}
