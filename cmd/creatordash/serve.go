// ABOUTME: serve command: loads config, prints the startup banner and runs the server
// ABOUTME: Blocks until SIGINT or SIGTERM

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/creatordash/internal/config"
	"github.com/2389/creatordash/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := getConfigPath()

			cyan := color.New(color.FgCyan)
			cyan.Print(banner)

			gray := color.New(color.FgHiBlack)
			gray.Printf("    version: %s\n\n", version)

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger := setupLogger(cfg.Logging)

			green := color.New(color.FgGreen)
			yellow := color.New(color.FgYellow)

			green.Print("    ▶ ")
			fmt.Printf("Config:    %s\n", configPath)
			green.Print("    ▶ ")
			fmt.Printf("Database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Driver)
			if cfg.Tailscale.Enabled {
				green.Print("    ▶ ")
				fmt.Printf("Tailscale: ")
				cyan.Print(cfg.Tailscale.Hostname)
				if cfg.Tailscale.HTTPS {
					yellow.Print(" [https]")
				}
				if cfg.Tailscale.Ephemeral {
					gray.Print(" (ephemeral)")
				}
				fmt.Println()
			} else {
				green.Print("    ▶ ")
				fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
			}
			if cfg.Metrics.Enabled {
				green.Print("    ▶ ")
				fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
			}
			fmt.Println()

			logger.Info("starting creatordash",
				"config", configPath,
				"http_addr", cfg.Server.HTTPAddr,
				"tailscale", cfg.Tailscale.Enabled,
			)

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			return srv.Run(cmd.Context())
		},
	}
}
