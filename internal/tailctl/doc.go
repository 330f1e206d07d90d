// Package tailctl guards a tail run with an exclusive per-source lock and
// assigns it a session id.
//
// Two tailers on the same tenant and source would each follow their own
// cursor and print every entry twice, so the CLI acquires a Session before
// polling and releases it on exit.
package tailctl
