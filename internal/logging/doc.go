// Package logging provides slog construction helpers and standardized
// attribute keys shared across subcue components.
package logging
