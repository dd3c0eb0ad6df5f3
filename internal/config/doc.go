// Package config loads and validates PaperRouter configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI and harness need: download/log directories, network pacing,
// OCR tiers, and harness resource ceilings.
//
// Always obtain settings through this package so downstream code receives
// expanded paths and clear validation errors.
package config
