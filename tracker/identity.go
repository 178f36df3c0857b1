// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/leaktrace/lib/clock"
	"github.com/bureau-foundation/leaktrace/lib/config"
	"github.com/bureau-foundation/leaktrace/lib/ref"
	"github.com/bureau-foundation/leaktrace/lib/sealed"
	"github.com/bureau-foundation/leaktrace/lib/secret"
	"github.com/bureau-foundation/leaktrace/messaging"
)

// ErrListenerNotReady reports that the listener identity never became
// ready within the readiness budget. Fatal before any round.
var ErrListenerNotReady = errors.New("tracker: listener never became ready")

const (
	// readinessPolls bounds the listener readiness barrier.
	readinessPolls = 30

	// readinessInterval is the wait between readiness polls.
	readinessInterval = time.Second
)

// Identities holds the connected sessions for a search. When no
// separate listener credential is configured, Listener is the sender
// session.
type Identities struct {
	Sender   messaging.Session
	Listener messaging.Session
}

// Close releases both sessions (once, when they are the same).
func (i *Identities) Close() {
	if i.Sender != nil {
		i.Sender.Close()
	}
	if i.Listener != nil && i.Listener != i.Sender {
		i.Listener.Close()
	}
}

// IdentityCoordinator connects the search identities and runs the
// readiness barrier before any round is allowed to start.
type IdentityCoordinator struct {
	client *messaging.Client
	clock  clock.Clock
	logger *slog.Logger
}

// NewIdentityCoordinator creates a coordinator over a Matrix client.
func NewIdentityCoordinator(client *messaging.Client, clk clock.Clock, logger *slog.Logger) *IdentityCoordinator {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityCoordinator{client: client, clock: clk, logger: logger}
}

// Connect establishes the sender session and, when configured, an
// independent listener session. The two connect concurrently; the
// listener then passes a readiness barrier (WhoAmI once per second,
// at most 30 polls) before Connect returns. Any failure here is a
// connect failure: fatal, no round ever starts.
func (c *IdentityCoordinator) Connect(ctx context.Context, sender config.Credential, listener *config.Credential) (*Identities, error) {
	var (
		group       sync.WaitGroup
		senderSess  messaging.Session
		senderErr   error
		listenSess  messaging.Session
		listenerErr error
	)

	group.Add(1)
	go func() {
		defer group.Done()
		senderSess, senderErr = c.connectSession(ctx, sender)
	}()

	if listener != nil {
		group.Add(1)
		go func() {
			defer group.Done()
			listenSess, listenerErr = c.connectSession(ctx, *listener)
		}()
	}
	group.Wait()

	if senderErr != nil || listenerErr != nil {
		if senderSess != nil {
			senderSess.Close()
		}
		if listenSess != nil {
			listenSess.Close()
		}
		return nil, errors.Join(senderErr, listenerErr)
	}

	identities := &Identities{Sender: senderSess, Listener: senderSess}
	if listenSess != nil {
		identities.Listener = listenSess
		if err := c.awaitReady(ctx, listenSess); err != nil {
			identities.Close()
			return nil, err
		}
	}

	c.logger.Info("identities connected",
		"sender", identities.Sender.UserID(),
		"listener", identities.Listener.UserID(),
	)
	return identities, nil
}

// awaitReady is the join barrier: the listener must answer WhoAmI
// before any round starts, otherwise a probe could race an
// unobserved window.
func (c *IdentityCoordinator) awaitReady(ctx context.Context, session messaging.Session) error {
	ticker := c.clock.NewTicker(readinessInterval)
	defer ticker.Stop()

	var lastErr error
	for poll := 1; poll <= readinessPolls; poll++ {
		if _, err := session.WhoAmI(ctx); err == nil {
			c.logger.Debug("listener ready", "polls", poll)
			return nil
		} else {
			lastErr = err
			c.logger.Debug("listener not ready", "poll", poll, "error", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("tracker: readiness barrier interrupted: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return fmt.Errorf("%w after %d polls: %v", ErrListenerNotReady, readinessPolls, lastErr)
}

// connectSession turns a credential into an authenticated session:
// password login, or token reuse validated with WhoAmI.
func (c *IdentityCoordinator) connectSession(ctx context.Context, credential config.Credential) (messaging.Session, error) {
	secretValue, err := readCredentialSecret(credential)
	if err != nil {
		return nil, err
	}

	if credential.UsesPassword() {
		defer secretValue.Close()
		session, err := c.client.Login(ctx, credential.Username, secretValue)
		if err != nil {
			return nil, fmt.Errorf("tracker: connecting %s: %w", credential.Username, err)
		}
		return session, nil
	}

	userID, err := ref.ParseUserID(credential.UserID)
	if err != nil {
		secretValue.Close()
		return nil, fmt.Errorf("tracker: credential user_id: %w", err)
	}
	// The session adopts the token buffer.
	session, err := c.client.SessionFromToken(userID, secretValue)
	if err != nil {
		secretValue.Close()
		return nil, fmt.Errorf("tracker: connecting %s: %w", userID, err)
	}
	if _, err := session.WhoAmI(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("tracker: validating token for %s: %w", userID, err)
	}
	return session, nil
}

// readCredentialSecret loads the password or token into protected
// memory, decrypting .age-sealed files with the identity file.
func readCredentialSecret(credential config.Credential) (*secret.Buffer, error) {
	path := credential.SecretFile()
	buffer, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("tracker: reading credential secret: %w", err)
	}

	if !strings.HasSuffix(path, ".age") {
		return buffer, nil
	}
	defer buffer.Close()

	if credential.IdentityFile == "" {
		return nil, fmt.Errorf("tracker: %s is sealed but no identity_file is configured", path)
	}
	identity, err := secret.ReadFromPath(credential.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("tracker: reading identity file: %w", err)
	}
	defer identity.Close()

	plaintext, err := sealed.Decrypt(buffer.String(), identity)
	if err != nil {
		return nil, fmt.Errorf("tracker: unsealing %s: %w", path, err)
	}
	return plaintext, nil
}
