// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// ReadFromPath reads a credential secret (password, access token, or
// age identity) from a file path, or from stdin if path is "-". The
// returned buffer is mmap-backed (locked into RAM, excluded from core
// dumps) and must be closed by the caller.
//
// Surrounding whitespace is trimmed before storing, so trailing
// newlines left by editors and `echo` do not end up in the credential.
// An empty source after trimming is an error. Every intermediate copy
// of the secret is zeroed before returning.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte

	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("secret: reading stdin: %w", err)
			}
			return nil, fmt.Errorf("secret: stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret: %s holds no secret", sourceName(path))
	}

	// NewFromBytes copies into mmap-backed memory and zeros trimmed;
	// zero the rest of the original read (the trimmed whitespace).
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

func sourceName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
