// Package main hosts the fidctail CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, then hands off to the
// internal packages: `tail` wires the monitoring API client, the poll driver,
// the renderer and the optional archive; `sources`, `history` and `config`
// are thin views over the catalog, the archive and the config loader.
// Payloads are written to stdout and diagnostics to stderr so the output can
// be piped.
package main
