// Package config loads, normalizes, and validates releasekit configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as
// RELEASEKIT_S3_SECRET_KEY. The Config type centralizes every knob the release
// job and CLI need, so state directories, repository definitions and
// participant settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
