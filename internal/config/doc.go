// Package config loads, normalizes, and validates subcue configuration from
// TOML.
package config
