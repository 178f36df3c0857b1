// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bisect implements adaptive bisection over a population of
// entities that share a capability, isolating the one entity through
// which probe content leaks to a monitored destination.
//
// Each round removes the capability from half of the remaining
// suspects, waits a settle interval, emits a uniquely-marked probe,
// and watches the monitored destination for the marker under a
// deadline. Whichever half the observation implicates becomes the
// next round's population. Capabilities are always restored before
// the observation result is acted on, so no entity is left degraded
// by the search. After a single suspect remains, one confirmation
// round re-tests it with the capability removed: a signal that still
// arrives contradicts the single-leaker assumption and the verdict is
// reported unconfirmed.
//
// The package owns the algorithm and its collaborator contracts
// ([Directory], [Prober], [Observer], [ProgressSink]); platform
// bindings live elsewhere and tests drive the engine with fakes.
package bisect
