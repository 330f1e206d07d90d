// Package archive stores emitted log entries in a local SQLite database so
// past output can be reviewed with `fidctail history`.
//
// The archive is write-behind only: it never feeds a cursor back into the
// poller, and a tail run keeps working when the archive is disabled.
package archive
