// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/lib/clock"
	"github.com/bureau-foundation/leaktrace/lib/config"
	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

// Tracker runs a full leak search from a validated configuration:
// connect the identities, snapshot the suspect population, drive the
// bisection engine, report the verdict through the sink.
type Tracker struct {
	config *config.Config
	sink   bisect.ProgressSink
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a tracker. sink may be nil (progress is discarded,
// logging still happens); clk may be nil (the real clock is used).
func New(cfg *config.Config, sink bisect.ProgressSink, clk clock.Clock, logger *slog.Logger) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{config: cfg, sink: sink, clock: clk, logger: logger}
}

// Run executes one search. The returned verdict is nil when the
// suspect population was empty; errors before the first round are
// connect or configuration failures, errors during a round come from
// the engine with everyone restored.
func (t *Tracker) Run(ctx context.Context) (*bisect.Verdict, error) {
	httpClient, err := t.httpClient()
	if err != nil {
		return t.fail(err)
	}
	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: t.config.Homeserver,
		HTTPClient:    httpClient,
		Logger:        t.logger,
	})
	if err != nil {
		return t.fail(err)
	}

	// Reachability check before spending credentials on a login
	// attempt: a dead homeserver fails here with a clear message.
	if _, err := client.ServerVersions(ctx); err != nil {
		return t.fail(fmt.Errorf("tracker: homeserver unreachable: %w", err))
	}

	coordinator := NewIdentityCoordinator(client, t.clock, t.logger)
	identities, err := coordinator.Connect(ctx, t.config.Sender, t.config.Listener)
	if err != nil {
		return t.fail(err)
	}
	defer identities.Close()

	rooms, err := t.resolveRooms(ctx, identities)
	if err != nil {
		return t.fail(err)
	}
	if err := t.joinRooms(ctx, identities, rooms); err != nil {
		return t.fail(err)
	}

	suspects, err := t.snapshotSuspects(ctx, identities, rooms)
	if err != nil {
		return t.fail(err)
	}
	t.logger.Info("suspect population assembled",
		"group", rooms.group,
		"suspects", len(suspects),
	)

	marker, err := bisect.NewMarker()
	if err != nil {
		return t.fail(fmt.Errorf("tracker: generating marker: %w", err))
	}
	probeText := strings.TrimSpace(t.config.ProbeText + " " + marker)

	engine := &bisect.Engine{
		Toggler:  bisect.NewCapabilityToggler(NewDirectory(identities.Sender, t.logger), t.logger),
		Prober:   t.prober(httpClient, identities, rooms, probeText),
		Observer: NewLeakObserver(identities.Listener, rooms.monitored, marker, t.logger),
		Sink:     t.sink,
		Clock:    t.clock,
		Settle:   t.config.Settle(),
		Timeout:  t.config.Timeout(),
		Logger:   t.logger,
	}

	verdict, err := engine.Locate(ctx, suspects)
	if err != nil {
		// The engine already reported the aborting round as a
		// progress event; the stream still needs its terminal
		// no-result record.
		if t.sink != nil {
			t.sink.Result(nil)
		}
		return nil, err
	}
	if t.sink != nil {
		t.sink.Result(verdict)
	}
	return verdict, nil
}

// fail reports a fatal failure outside any round. Hosts reading the
// progress stream get a descriptive event and the terminal no-result
// record instead of a stream that simply ends.
func (t *Tracker) fail(err error) (*bisect.Verdict, error) {
	t.logger.Error("search failed", "error", err)
	if t.sink != nil {
		t.sink.Progress(bisect.Event{Message: "search failed: " + err.Error()})
		t.sink.Result(nil)
	}
	return nil, err
}

// httpClient builds the transport, routed through the configured
// proxy when enabled.
func (t *Tracker) httpClient() (*http.Client, error) {
	if !t.config.Proxy.Enabled {
		return http.DefaultClient, nil
	}
	proxyURL, err := url.Parse(t.config.Proxy.URL())
	if err != nil {
		return nil, fmt.Errorf("tracker: proxy URL: %w", err)
	}
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}, nil
}

// searchRooms holds every room the search touches, alias-resolved to
// room IDs.
type searchRooms struct {
	group        ref.RoomID
	capabilities []ref.RoomID
	monitored    ref.RoomID
	send         ref.RoomID // zero when the probe goes through a webhook
}

func (t *Tracker) resolveRooms(ctx context.Context, identities *Identities) (*searchRooms, error) {
	rooms := &searchRooms{}
	var err error

	if rooms.group, err = resolveRoom(ctx, identities.Sender, t.config.GroupRoom); err != nil {
		return nil, fmt.Errorf("tracker: group room: %w", err)
	}
	for _, raw := range t.config.CapabilityRooms {
		roomID, err := resolveRoom(ctx, identities.Sender, raw)
		if err != nil {
			return nil, fmt.Errorf("tracker: capability room: %w", err)
		}
		rooms.capabilities = append(rooms.capabilities, roomID)
	}
	if rooms.monitored, err = resolveRoom(ctx, identities.Listener, t.config.MonitoredRoom); err != nil {
		return nil, fmt.Errorf("tracker: monitored room: %w", err)
	}
	if t.config.SendRoom != "" {
		if rooms.send, err = resolveRoom(ctx, identities.Sender, t.config.SendRoom); err != nil {
			return nil, fmt.Errorf("tracker: send room: %w", err)
		}
	}
	return rooms, nil
}

// resolveRoom accepts either a room alias ("#name:server") or a bare
// room ID ("!opaque:server").
func resolveRoom(ctx context.Context, session messaging.Session, raw string) (ref.RoomID, error) {
	if strings.HasPrefix(raw, "#") {
		alias, err := ref.ParseRoomAlias(raw)
		if err != nil {
			return ref.RoomID{}, err
		}
		return session.ResolveAlias(ctx, alias)
	}
	return ref.ParseRoomID(raw)
}

// joinRooms makes sure the identities are inside the rooms they act
// on: the listener in the monitored room, the sender in the send room.
// Joining an already-joined room is a no-op server side.
func (t *Tracker) joinRooms(ctx context.Context, identities *Identities, rooms *searchRooms) error {
	if _, err := identities.Listener.JoinRoom(ctx, rooms.monitored); err != nil {
		return fmt.Errorf("tracker: joining monitored room: %w", err)
	}
	if !rooms.send.IsZero() {
		if _, err := identities.Sender.JoinRoom(ctx, rooms.send); err != nil {
			return fmt.Errorf("tracker: joining send room: %w", err)
		}
	}
	return nil
}

// snapshotSuspects assembles the population: joined group members,
// excluding the search's own identities, that hold at least one
// capability. Entities holding no capability cannot be the leaker and
// never get toggled.
func (t *Tracker) snapshotSuspects(ctx context.Context, identities *Identities, rooms *searchRooms) ([]bisect.Entity, error) {
	members, err := identities.Sender.GetRoomMembers(ctx, rooms.group)
	if err != nil {
		return nil, fmt.Errorf("tracker: listing group members: %w", err)
	}

	// Which capability rooms each user is currently joined to.
	holders := make(map[ref.UserID][]string)
	for _, capabilityRoom := range rooms.capabilities {
		capabilityMembers, err := identities.Sender.GetRoomMembers(ctx, capabilityRoom)
		if err != nil {
			return nil, fmt.Errorf("tracker: listing capability room %s: %w", capabilityRoom, err)
		}
		for _, member := range capabilityMembers {
			if member.Membership != "join" {
				continue
			}
			holders[member.UserID] = append(holders[member.UserID], capabilityRoom.String())
		}
	}

	operators := map[ref.UserID]bool{
		identities.Sender.UserID():   true,
		identities.Listener.UserID(): true,
	}

	var suspects []bisect.Entity
	for _, member := range members {
		if member.Membership != "join" || operators[member.UserID] {
			continue
		}
		capabilities := holders[member.UserID]
		if len(capabilities) == 0 {
			continue
		}
		displayName, avatarURL := member.DisplayName, member.AvatarURL
		if displayName == "" {
			// Member events often omit the profile. Fetch it so the
			// verdict and the live view can show a human name; an
			// empty or failed lookup falls back to the username.
			if profile, err := identities.Sender.GetProfile(ctx, member.UserID); err == nil {
				displayName = profile.DisplayName
				if avatarURL == "" {
					avatarURL = profile.AvatarURL
				}
			}
		}
		suspects = append(suspects, bisect.Entity{
			ID:           member.UserID.String(),
			Username:     member.UserID.Localpart(),
			DisplayName:  displayName,
			AvatarURL:    avatarURL,
			Capabilities: capabilities,
		})
	}
	return suspects, nil
}

// prober picks the probe transport: webhook when configured, the send
// room otherwise. Validation guarantees exactly one is set.
func (t *Tracker) prober(httpClient *http.Client, identities *Identities, rooms *searchRooms, text string) bisect.Prober {
	if t.config.WebhookURL != "" {
		return NewWebhookProber(httpClient, t.config.WebhookURL, text)
	}
	return NewSessionProber(identities.Sender, rooms.send, text)
}
