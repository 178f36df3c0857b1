// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the search configuration.
//
// Configuration is loaded from a single file passed via --config. There
// are no fallbacks or automatic discovery; this keeps every run
// deterministic and auditable. YAML is the primary format; files ending
// in .json or .jsonc are accepted too (comments and trailing commas are
// stripped before parsing).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Default settle and observation intervals. The settle delay lets a
// membership toggle propagate through the homeserver before probing.
const (
	DefaultSettleMS       = 1000
	DefaultTimeoutSeconds = 10
	DefaultProxyHost      = "127.0.0.1"
	DefaultProxyPort      = 7897
)

// Config is the full configuration for one leak search.
type Config struct {
	// Homeserver is the base URL of the Matrix homeserver.
	Homeserver string `yaml:"homeserver"`

	// Sender is the credential used for directory control and probing.
	Sender Credential `yaml:"sender"`

	// Listener is an optional second credential used only for observing
	// the monitored room. When nil, the sender session observes.
	Listener *Credential `yaml:"listener,omitempty"`

	// GroupRoom is the room (ID or alias) whose joined members form the
	// candidate population.
	GroupRoom string `yaml:"group_room"`

	// CapabilityRooms are the protected rooms whose membership is the
	// capability under audit. At least one is required.
	CapabilityRooms []string `yaml:"capability_rooms"`

	// MonitoredRoom is the room watched for the leaked probe marker.
	MonitoredRoom string `yaml:"monitored_room"`

	// ProbeText is the human-readable prefix of each probe message. A
	// per-search marker token is appended at runtime.
	ProbeText string `yaml:"probe_text"`

	// SendRoom is the room the probe is sent to. Exactly one of
	// SendRoom and WebhookURL must be set.
	SendRoom string `yaml:"send_room,omitempty"`

	// WebhookURL receives the probe as a JSON POST instead of a Matrix
	// message. Exactly one of SendRoom and WebhookURL must be set.
	WebhookURL string `yaml:"webhook_url,omitempty"`

	// TimeoutSeconds bounds each round's wait for the leak signal.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// SettleMS is the delay between toggling capabilities and probing.
	SettleMS int `yaml:"settle_ms"`

	// Proxy optionally routes all homeserver traffic through an HTTP
	// proxy.
	Proxy ProxyConfig `yaml:"proxy"`
}

// Credential identifies one Matrix account. Either Username plus
// PasswordFile (password login) or UserID plus TokenFile (token reuse)
// must be set. Files ending in .age are decrypted with IdentityFile.
type Credential struct {
	// Username is the login localpart or full user ID for password login.
	Username string `yaml:"username,omitempty"`

	// PasswordFile is a file holding the account password, or "-" for stdin.
	PasswordFile string `yaml:"password_file,omitempty"`

	// UserID is the full Matrix user ID, required with TokenFile.
	UserID string `yaml:"user_id,omitempty"`

	// TokenFile is a file holding an access token, or "-" for stdin.
	TokenFile string `yaml:"token_file,omitempty"`

	// IdentityFile is an age identity file used to decrypt .age-sealed
	// password or token files.
	IdentityFile string `yaml:"identity_file,omitempty"`
}

// ProxyConfig routes homeserver HTTP traffic through a local proxy.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// URL returns the proxy URL, or empty when disabled.
func (p ProxyConfig) URL() string {
	if !p.Enabled {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", p.Host, p.Port)
}

// Settle returns the settle delay as a duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// Timeout returns the per-round observation deadline as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns a configuration with defaults applied. These exist
// so optional fields have sensible values, not as a substitute for the
// config file — the file is required.
func Default() *Config {
	return &Config{
		TimeoutSeconds: DefaultTimeoutSeconds,
		SettleMS:       DefaultSettleMS,
		Proxy: ProxyConfig{
			Host: DefaultProxyHost,
			Port: DefaultProxyPort,
		},
	}
}

// LoadFile loads and validates the configuration from path. The format
// is chosen by extension: .json and .jsonc are parsed as
// comment-tolerant JSON, everything else as YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a YAML subset, so one decode path serves both
		// formats once comments and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are
// reported at once via errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver == "" {
		errs = append(errs, fmt.Errorf("homeserver is required"))
	} else if parsed, err := url.Parse(c.Homeserver); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("homeserver must be an absolute URL, got %q", c.Homeserver))
	}

	if err := c.Sender.validate("sender"); err != nil {
		errs = append(errs, err)
	}
	if c.Listener != nil {
		if err := c.Listener.validate("listener"); err != nil {
			errs = append(errs, err)
		}
	}

	if c.GroupRoom == "" {
		errs = append(errs, fmt.Errorf("group_room is required"))
	}
	if len(c.CapabilityRooms) == 0 {
		errs = append(errs, fmt.Errorf("at least one capability room is required"))
	}
	for i, room := range c.CapabilityRooms {
		if room == "" {
			errs = append(errs, fmt.Errorf("capability_rooms[%d] is empty", i))
		}
	}
	if c.MonitoredRoom == "" {
		errs = append(errs, fmt.Errorf("monitored_room is required"))
	}
	if c.ProbeText == "" {
		errs = append(errs, fmt.Errorf("probe_text is required"))
	}

	switch {
	case c.SendRoom == "" && c.WebhookURL == "":
		errs = append(errs, fmt.Errorf("one of send_room or webhook_url is required"))
	case c.SendRoom != "" && c.WebhookURL != "":
		errs = append(errs, fmt.Errorf("send_room and webhook_url are mutually exclusive"))
	}
	if c.WebhookURL != "" {
		if parsed, err := url.Parse(c.WebhookURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("webhook_url must be an absolute URL, got %q", c.WebhookURL))
		}
	}

	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds))
	}
	if c.SettleMS < 0 {
		errs = append(errs, fmt.Errorf("settle_ms must not be negative, got %d", c.SettleMS))
	}

	if c.Proxy.Enabled {
		if c.Proxy.Host == "" {
			errs = append(errs, fmt.Errorf("proxy.host is required when proxy is enabled"))
		}
		if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
			errs = append(errs, fmt.Errorf("proxy.port must be in 1..65535, got %d", c.Proxy.Port))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (cr *Credential) validate(name string) error {
	hasPassword := cr.Username != "" || cr.PasswordFile != ""
	hasToken := cr.UserID != "" || cr.TokenFile != ""

	switch {
	case !hasPassword && !hasToken:
		return fmt.Errorf("%s: either username/password_file or user_id/token_file is required", name)
	case hasPassword && hasToken:
		return fmt.Errorf("%s: username/password_file and user_id/token_file are mutually exclusive", name)
	case hasPassword:
		if cr.Username == "" {
			return fmt.Errorf("%s: username is required with password_file", name)
		}
		if cr.PasswordFile == "" {
			return fmt.Errorf("%s: password_file is required with username", name)
		}
	case hasToken:
		if cr.UserID == "" {
			return fmt.Errorf("%s: user_id is required with token_file", name)
		}
		if cr.TokenFile == "" {
			return fmt.Errorf("%s: token_file is required with user_id", name)
		}
	}
	return nil
}

// UsesPassword reports whether this credential logs in with a password
// rather than reusing a token.
func (cr *Credential) UsesPassword() bool {
	return cr.PasswordFile != ""
}

// SecretFile returns the path of the secret this credential reads
// (password or token file).
func (cr *Credential) SecretFile() string {
	if cr.PasswordFile != "" {
		return cr.PasswordFile
	}
	return cr.TokenFile
}
