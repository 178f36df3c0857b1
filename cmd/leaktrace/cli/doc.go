// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree for the leaktrace binary:
// declarative command/subcommand dispatch over pflag, structured help
// output, typo suggestions, and terminal-aware logger construction.
package cli
