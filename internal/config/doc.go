// Package config handles configuration loading for creatordash.
//
// # Overview
//
// Configuration is loaded from a YAML file, or a TOML file when the path ends
// in .toml, with environment variable expansion, defaults and validation.
//
// # Configuration File
//
// The serve command reads, in order:
//
//  1. The --config flag
//  2. Path from CREATORDASH_CONFIG environment variable
//  3. ./config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  token_secret: "${CREATORDASH_TOKEN_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
//	database:
//	  driver: "sqlite"            # sqlite (pure Go) or sqlite3 (cgo)
//	  path: "./creatordash.db"    # CREATORDASH_DB_PATH overrides
//
//	auth:
//	  token_secret: "${CREATORDASH_TOKEN_SECRET}"  # at least 32 characters
//	  session_ttl: "168h"
//	  min_password_length: 6
//
//	webapp:
//	  base_url: "https://dash.example.com"
//	  resolve_wait: "500ms"
//	  visitor_ttl: "30m"
//	  secure_cookies: true
//	  max_visitors: 10000
//
//	tailscale:
//	  enabled: false
//	  hostname: "creatordash"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: true
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Durations use time.ParseDuration syntax.
package config
