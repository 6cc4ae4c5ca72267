// ABOUTME: health command: asks a running server for its liveness or readiness
// ABOUTME: Exits non-zero when the server is unreachable or unhealthy

package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/creatordash/internal/config"
)

func healthCmd() *cobra.Command {
	var ready bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check dashboard health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(getConfigPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			path := "/health"
			if ready {
				path = "/health/ready"
			}
			url := healthURL(cfg) + path

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("creating request: %w", err)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}

			if ready {
				fmt.Println(strings.TrimSpace(string(body)))
			} else {
				fmt.Println("healthy")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ready, "ready", false, "check readiness (database) instead of liveness")
	return cmd
}

// healthURL is where the server can be reached from this host.
func healthURL(cfg *config.Config) string {
	if cfg.WebApp.BaseURL != "" {
		return strings.TrimSuffix(cfg.WebApp.BaseURL, "/")
	}
	if cfg.Tailscale.Enabled {
		scheme := "http"
		if cfg.Tailscale.HTTPS {
			scheme = "https"
		}
		return scheme + "://" + cfg.Tailscale.Hostname
	}
	return "http://" + cfg.Server.HTTPAddr
}
