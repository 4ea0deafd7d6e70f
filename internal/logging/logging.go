// Package logging builds the zap loggers used across the site.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing JSON ("json") or human-readable ("console")
// output at level. The returned AtomicLevel changes the level in place.
func New(level, format string) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("unknown log format: %q", format)
	}
	atom := zap.NewAtomicLevelAt(lvl)
	cfg.Level = atom

	logger, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, atom, nil
}

// ParseLevel accepts the zap level names; empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
	return lvl, nil
}

// SetLevel applies s to atom, leaving it unchanged when s is invalid.
func SetLevel(atom zap.AtomicLevel, s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	atom.SetLevel(lvl)
	return nil
}
