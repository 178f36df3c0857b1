// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bisect

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// markerDomainKey is the BLAKE3 keyed-hash domain for probe markers.
// Domain separation keeps marker tokens distinct from any other hash
// of the same random material. The bytes are the ASCII domain name,
// zero-padded to the 32 bytes keyed mode requires.
var markerDomainKey = [32]byte{
	'l', 'e', 'a', 'k', 't', 'r', 'a', 'c', 'e', '.',
	'p', 'r', 'o', 'b', 'e', '.', 'm', 'a', 'r', 'k', 'e', 'r',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// markerBytes is the token length before hex encoding. 16 bytes gives
// a 32-character token: long enough that an accidental collision with
// organic room traffic is implausible, short enough to ride along in
// a probe message.
const markerBytes = 16

// NewMarker derives a per-search unique marker token from fresh
// random material. The token is appended to the configured probe text
// and matched as a plain substring by the leak predicate — content
// identifies the leak, never the sender.
func NewMarker() (string, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", fmt.Errorf("bisect: reading marker entropy: %w", err)
	}

	hasher, err := blake3.NewKeyed(markerDomainKey[:])
	if err != nil {
		panic("bisect: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(seed[:])

	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest[:markerBytes]), nil
}
