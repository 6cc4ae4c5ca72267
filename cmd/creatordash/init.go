// ABOUTME: init command: interactively writes a config file with a fresh token secret
// ABOUTME: Refuses to overwrite an existing file unless confirmed

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// initAnswers are the values collected by the init prompts.
type initAnswers struct {
	HTTPAddr          string
	DBPath            string
	TokenSecret       string
	TailscaleEnabled  bool
	TailscaleHostname string
	TailscaleHTTPS    bool
	LogLevel          string
	LogFormat         string
	MetricsEnabled    bool
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "creatordash configuration setup")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	secret, err := generateTokenSecret()
	if err != nil {
		return err
	}
	answers := initAnswers{TokenSecret: secret}

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	answers.HTTPAddr = prompt(reader, out, "HTTP address", "localhost:8080")

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	answers.DBPath = prompt(reader, out, "SQLite database path", filepath.Join(getDataPath(), "creatordash.db"))

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	answers.TailscaleEnabled = yes(prompt(reader, out, "Enable Tailscale?", "no"))
	if answers.TailscaleEnabled {
		answers.TailscaleHostname = prompt(reader, out, "Tailscale hostname", "creatordash")
		answers.TailscaleHTTPS = yes(prompt(reader, out, "Serve HTTPS with Tailscale certs?", "yes"))
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	answers.LogLevel = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	answers.LogFormat = prompt(reader, out, "Log format (text/json)", "text")
	answers.MetricsEnabled = yes(prompt(reader, out, "Enable Prometheus metrics?", "no"))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file carries the token secret
	if err := os.WriteFile(outputFile, []byte(renderConfig(answers)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(answers.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	green := color.New(color.FgGreen)
	fmt.Fprintln(out)
	green.Fprintf(out, "  ✓ Config written to %s\n", outputFile)
	green.Fprintf(out, "  ✓ Data directory: %s\n", dataDir)
	fmt.Fprintln(out, "\nNext:")
	fmt.Fprintln(out, "  creatordash adduser --email you@example.com")
	fmt.Fprintln(out, "  creatordash serve")
	return nil
}

// renderConfig produces the YAML config file for a set of answers.
func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# creatordash configuration\n")
	cfg.WriteString("# Generated by creatordash init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n\n", a.HTTPAddr))

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.TailscaleEnabled))
	if a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", a.TailscaleHostname))
		cfg.WriteString("  auth_key: \"${TS_AUTHKEY}\"\n")
		cfg.WriteString(fmt.Sprintf("  https: %t\n", a.TailscaleHTTPS))
	}
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString("  driver: \"sqlite\"\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n\n", a.DBPath))

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  token_secret: %q\n", a.TokenSecret))
	cfg.WriteString("  session_ttl: \"168h\"\n")
	cfg.WriteString("  min_password_length: 6\n\n")

	cfg.WriteString("webapp:\n")
	cfg.WriteString("  resolve_wait: \"500ms\"\n")
	cfg.WriteString("  visitor_ttl: \"30m\"\n")
	cfg.WriteString("  max_visitors: 10000\n\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n\n", a.LogFormat))

	cfg.WriteString("metrics:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.MetricsEnabled))
	cfg.WriteString("  path: \"/metrics\"\n")
	return cfg.String()
}

func generateTokenSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
