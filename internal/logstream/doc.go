// Package logstream drives the poll loop for one log source.
//
// Stream repeatedly builds a request from the current poller.State, fetches
// a page, hands every entry to the caller, and only then folds the page into
// the state. A failed fetch leaves the state untouched so the next attempt
// repeats the same cursor.
package logstream
