// Package config loads, normalizes, and validates reel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and render pipeline need: asset roots, output/session directories, the
// encoder binary and codec options, workflow limits, and logging settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
