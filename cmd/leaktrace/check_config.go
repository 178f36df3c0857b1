// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/leaktrace/cmd/leaktrace/cli"
	"github.com/bureau-foundation/leaktrace/lib/config"
)

func checkConfigCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "check-config",
		Summary: "validate a search configuration without connecting",
		Usage:   "leaktrace check-config --config <file>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("check-config", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to the search configuration (YAML or JSONC)")
			return flags
		},
		Run: func([]string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			transport := "send room " + cfg.SendRoom
			if cfg.WebhookURL != "" {
				transport = "webhook " + cfg.WebhookURL
			}
			listener := "sender doubles as listener"
			if cfg.Listener != nil {
				listener = "dedicated listener configured"
			}

			fmt.Printf("configuration OK\n")
			fmt.Printf("  homeserver:        %s\n", cfg.Homeserver)
			fmt.Printf("  group room:        %s\n", cfg.GroupRoom)
			fmt.Printf("  capability rooms:  %d\n", len(cfg.CapabilityRooms))
			fmt.Printf("  monitored room:    %s\n", cfg.MonitoredRoom)
			fmt.Printf("  probe transport:   %s\n", transport)
			fmt.Printf("  listener:          %s\n", listener)
			fmt.Printf("  settle interval:   %s\n", cfg.Settle())
			fmt.Printf("  observe timeout:   %s\n", cfg.Timeout())
			if cfg.Proxy.Enabled {
				fmt.Printf("  proxy:             %s\n", cfg.Proxy.URL())
			}
			return nil
		},
	}
}
