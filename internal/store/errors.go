package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a restore miss across every tier. Callers fall
	// back to a fresh import.
	ErrNotFound = errors.New("project not found")
	// ErrWrite marks a durable write failure. Dirty state is retained by the
	// caller so the next change or explicit save retries.
	ErrWrite = errors.New("storage write failed")
	// ErrRead marks a durable read failure that is not a plain miss.
	ErrRead = errors.New("storage read failed")
)

// Wrap tags err with a classification marker and tier/operation context for
// later errors.Is checks.
func Wrap(marker error, tier, operation string, err error) error {
	detail := buildDetail(tier, operation)
	if marker == nil {
		marker = ErrWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(tier, operation string) string {
	parts := make([]string, 0, 2)
	if tier = strings.TrimSpace(tier); tier != "" {
		parts = append(parts, tier)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "storage failure"
	}
	return strings.Join(parts, ": ")
}
