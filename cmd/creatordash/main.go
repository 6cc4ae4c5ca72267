// ABOUTME: Entry point for the creatordash dashboard server
// ABOUTME: Cobra command tree plus config and data path resolution

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                      _                 _           _
  ___ _ __ ___  __ _| |_ ___  _ __ __| | __ _ ___| |__
 / __| '__/ _ \/ _' | __/ _ \| '__/ _' |/ _' / __| '_ \
| (__| | |  __/ (_| | || (_) | | | (_| | (_| \__ \ | | |
 \___|_|  \___|\__,_|\__\___/|_|  \__,_|\__,_|___/_| |_|
`

// configFlag holds --config; empty means use getConfigPath.
var configFlag string

// getConfigPath returns the path to the config file.
// Priority: --config > CREATORDASH_CONFIG env var > XDG_CONFIG_HOME/creatordash/config.yaml > ~/.config/creatordash/config.yaml
func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if envPath := os.Getenv("CREATORDASH_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "creatordash", "config.yaml")
}

// getDataPath returns the path to the creatordash data directory.
// Priority: XDG_DATA_HOME/creatordash > ~/.local/share/creatordash
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "creatordash")
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "creatordash",
		Short: "Creator dashboard server",
		Long: `creatordash serves the creator dashboard behind a sign-in gate.

Visitors see a loading view while their session resolves, the
credential form when signed out, and the navigation shell once
signed in.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (YAML or .toml)")

	rootCmd.AddCommand(
		serveCmd(),
		initCmd(),
		addUserCmd(),
		healthCmd(),
		versionCmd(),
	)
	return rootCmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
