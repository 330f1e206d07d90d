// Package config loads, normalizes, and validates fidctail configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as FIDC_API_KEY_SECRET so
// credentials can stay out of the file. The Config type centralizes the tenant
// connection, polling cadence, archive, and logging settings.
//
// Always obtain settings through this package so callers receive trimmed
// hosts, expanded paths, and clear validation errors.
package config
