// Package config loads, normalizes, and validates dockq configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// DOCKQ_TABLE and DOCKQ_TIME_LIMIT. The Config type centralizes every knob the
// worker and the helper commands need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
