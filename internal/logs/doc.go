// Package logs is the HTTP client for the tenant monitoring log tail
// endpoint.
//
// Client.Fetch sends one poll built by the poller package, authenticates with
// the log API key pair, and decodes the body into a poller.Response. Every
// failure before a body is decoded comes back as a *TransportError so callers
// can tell network and HTTP status problems apart from malformed bodies
// (poller.DecodeError). Neither kind is retried here; pacing and retry belong
// to the logstream driver.
package logs
