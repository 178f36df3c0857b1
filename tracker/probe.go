// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/lib/netutil"
	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/messaging"
)

// SessionProber delivers the probe as a Matrix message to the send
// room. The text already carries the per-search marker.
type SessionProber struct {
	session messaging.Session
	room    ref.RoomID
	text    string
}

// NewSessionProber creates a prober sending to room via session.
func NewSessionProber(session messaging.Session, room ref.RoomID, text string) *SessionProber {
	return &SessionProber{session: session, room: room, text: text}
}

// Probe sends the probe message. Failures are transport errors: the
// round aborts but restoration still runs.
func (p *SessionProber) Probe(ctx context.Context) error {
	if _, err := p.session.SendMessage(ctx, p.room, messaging.NewTextMessage(p.text)); err != nil {
		return &bisect.TransportError{Op: "send", Err: err}
	}
	return nil
}

// WebhookProber delivers the probe as a fire-and-forget JSON POST,
// for populations reached through an external relay instead of a
// Matrix room.
type WebhookProber struct {
	client *http.Client
	url    string
	text   string
}

// NewWebhookProber creates a prober POSTing to url. A nil client uses
// http.DefaultClient.
func NewWebhookProber(client *http.Client, url, text string) *WebhookProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookProber{client: client, url: url, text: text}
}

// Probe POSTs {"text": ...} to the webhook. Only 200 and 204 count as
// delivered; any other status is a transport error.
func (p *WebhookProber) Probe(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"text": p.text})
	if err != nil {
		return &bisect.TransportError{Op: "webhook", Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return &bisect.TransportError{Op: "webhook", Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := p.client.Do(request)
	if err != nil {
		return &bisect.TransportError{Op: "webhook", Err: err}
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		body := netutil.ErrorBody(response.Body)
		return &bisect.TransportError{
			Op:  "webhook",
			Err: fmt.Errorf("unexpected status %d: %s", response.StatusCode, body),
		}
	}
}

var (
	_ bisect.Prober = (*SessionProber)(nil)
	_ bisect.Prober = (*WebhookProber)(nil)
)
