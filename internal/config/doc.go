// Package config loads, normalizes, and validates the TOML configuration
// shared by the amuza daemon and CLI.
package config
