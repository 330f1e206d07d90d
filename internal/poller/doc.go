// Package poller owns the paged-results cursor for the monitoring log tail
// endpoint.
//
// The package is pure: BuildRequest turns the current State into the query
// for the next poll and ApplyResponse folds a decoded page back into a new
// State. Nothing here performs I/O, sleeps, or retries. Callers thread the
// State value through their own loop and only replace it after a page was
// fetched, decoded, and emitted, so a failed poll always retries with the
// cursor it started from.
//
// Cursor values are opaque. They are forwarded byte-for-byte and never
// parsed, trimmed, or rewritten.
package poller
