package logstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fidctail/internal/logging"
	"fidctail/internal/logs"
	"fidctail/internal/poller"
)

var ErrTooManyFailures = errors.New("too many consecutive poll failures")

// Fetcher performs one poll against the tail endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, req poller.Request) (poller.Response, error)
}

// Options controls stream behavior.
type Options struct {
	Source        string
	Start         poller.State
	PollInterval  time.Duration
	RetryInterval time.Duration
	// MaxFailures stops the stream after that many consecutive failed polls.
	// Zero retries forever.
	MaxFailures int
	// StopAtEnd ends the stream when the server reports no continuation
	// instead of restarting from the most recent window.
	StopAtEnd bool
	// Once performs a single poll attempt.
	Once bool
	// Logger is expected to carry the source field already, typically via
	// logging.WithContext.
	Logger *slog.Logger

	sleep func(context.Context, time.Duration) error
}

// Event is one emitted log entry.
type Event struct {
	Source  string
	Payload json.RawMessage
	// Cursor is the cursor the page was requested with, empty on a fresh
	// window.
	Cursor string
	Page   uint64
}

// Summary reports what a stream did before returning.
type Summary struct {
	Polls    int
	Failures int
	Entries  int
	State    poller.State
}

// Stream polls until ctx is cancelled, the end-of-stream policy stops it, or
// a non-retryable error occurs. Cancellation is not an error.
func Stream(ctx context.Context, f Fetcher, opts Options, onEvent func(Event) error) (Summary, error) {
	if f == nil {
		return Summary{State: opts.Start}, logs.ErrAPIUnavailable
	}
	source := strings.TrimSpace(opts.Source)
	if source == "" {
		return Summary{State: opts.Start}, errors.New("stream: source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	summary := Summary{State: opts.Start}
	state := opts.Start
	consecutive := 0

	for {
		if ctx.Err() != nil {
			return summary, nil
		}

		req := poller.BuildRequest(source, state)
		resp, err := f.Fetch(ctx, req)
		summary.Polls++
		if err != nil {
			if ctx.Err() != nil {
				return summary, nil
			}
			summary.Failures++
			consecutive++
			if opts.Once {
				return summary, err
			}
			if logs.IsUnauthorized(err) {
				return summary, fmt.Errorf("stream %s: %w", source, err)
			}
			if opts.MaxFailures > 0 && consecutive >= opts.MaxFailures {
				return summary, fmt.Errorf("%w (%d): %w", ErrTooManyFailures, consecutive, err)
			}
			delay := opts.RetryInterval
			if after := logs.RetryAfter(err); after > delay {
				delay = after
			}
			logging.WarnWithContext(logger, "poll failed", "tail_poll_failed",
				logging.String(logging.FieldCursor, requestCursor(req)),
				logging.Int(logging.FieldAttempt, consecutive),
				logging.Duration("retry_in", delay),
				logging.String(logging.FieldErrorHint, errorHint(err)),
				logging.Error(err),
			)
			if err := sleep(ctx, delay); err != nil {
				return summary, nil
			}
			continue
		}
		consecutive = 0

		next, entries := poller.ApplyResponse(state, resp)
		for _, entry := range entries {
			if onEvent == nil {
				break
			}
			if err := onEvent(Event{
				Source:  source,
				Payload: entry.Payload,
				Cursor:  requestCursor(req),
				Page:    next.Pages(),
			}); err != nil {
				return summary, fmt.Errorf("emit entry: %w", err)
			}
			summary.Entries++
		}
		state = next
		summary.State = state

		nextCursor, _ := state.Cursor()
		logger.Debug("poll complete",
			logging.Int(logging.FieldEntries, len(entries)),
			logging.String(logging.FieldCursor, requestCursor(req)),
			logging.String(logging.FieldNextCursor, nextCursor),
		)

		if state.Exhausted() {
			if opts.StopAtEnd {
				logger.Info("end of stream reached", logging.String(logging.FieldEventType, "tail_end_of_stream"))
				return summary, nil
			}
			logger.Info("end of stream reached; restarting from latest window",
				logging.String(logging.FieldEventType, "tail_end_of_stream"))
		}
		if opts.Once {
			return summary, nil
		}
		if err := sleep(ctx, opts.PollInterval); err != nil {
			return summary, nil
		}
	}
}

func requestCursor(req poller.Request) string {
	if !req.HasCursor {
		return ""
	}
	return req.Cursor
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, logs.ErrBodyTooLarge):
		return "tail page is larger than the client accepts; the same cursor will be retried"
	case poller.IsDecodeError(err):
		return "the tail endpoint returned an unexpected body; check the host points at the tenant"
	case logs.IsAPIUnavailable(err):
		return "tenant unreachable; check network access and tenant.host"
	default:
		return "transient API failure; the same cursor will be retried"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
