package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fidctail/internal/archive"
	"fidctail/internal/config"
	"fidctail/internal/logging"
	"fidctail/internal/logs"
	"fidctail/internal/logstream"
	"fidctail/internal/poller"
	"fidctail/internal/render"
	"fidctail/internal/sources"
	"fidctail/internal/tailctl"
)

type tailFlags struct {
	source   string
	output   string
	cursor   string
	interval time.Duration
	once     bool
}

func newTailCommand(ctx *commandContext) *cobra.Command {
	var flags tailFlags

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow a monitoring log source",
		Long: "Poll the tenant's monitoring log tail endpoint and print each entry's payload.\n" +
			"Payloads go to stdout; diagnostics go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runTail(cmd, ctx, cfg, flags, cmd.Flags().Changed("interval"))
		},
	}

	cmd.Flags().StringVarP(&flags.source, "source", "s", "", "Log source to tail (see `fidctail sources`)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Payload format: auto, pretty, json, or yaml")
	cmd.Flags().StringVar(&flags.cursor, "cursor", "", "Start from a paged-results cookie instead of the latest window")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "Delay between polls (overrides tail.poll_interval)")
	cmd.Flags().BoolVar(&flags.once, "once", false, "Poll a single page and exit")
	return cmd
}

func runTail(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, flags tailFlags, intervalSet bool) error {
	if err := cfg.ValidateTenant(); err != nil {
		return err
	}

	sourceName := cfg.Tenant.Source
	if strings.TrimSpace(flags.source) != "" {
		sourceName = flags.source
	}
	src, ok := sources.Lookup(sourceName)
	if !ok {
		return fmt.Errorf("unknown source %q (run `fidctail sources` for the list)", sourceName)
	}

	outputValue := cfg.Tail.Output
	if strings.TrimSpace(flags.output) != "" {
		outputValue = flags.output
	}
	format, err := render.ParseFormat(outputValue)
	if err != nil {
		return err
	}

	pollInterval := cfg.PollInterval()
	if intervalSet {
		if flags.interval <= 0 {
			return errors.New("--interval must be positive")
		}
		pollInterval = flags.interval
	}

	logger, closeLog, err := ctx.logger(cmd, "tail")
	if err != nil {
		return err
	}
	defer closeLog()

	session, err := tailctl.Acquire(cfg.LockDir(), cfg.Tenant.Host, src.Name)
	if err != nil {
		return err
	}
	runCtx := logging.WithSessionID(cmd.Context(), session.ID)
	runCtx = logging.WithSource(runCtx, src.Name)
	logger = logging.WithContext(runCtx, logger)
	defer releaseSession(session, logger)

	client, err := logs.NewClient(
		cfg.Tenant.Host,
		logs.Credentials{KeyID: cfg.Tenant.APIKeyID, Secret: cfg.Tenant.APIKeySecret},
		logs.WithTimeout(cfg.RequestTimeout()),
		logs.WithUserAgent("fidctail/"+version),
	)
	if err != nil {
		return err
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
	}

	renderer := render.New(cmd.OutOrStdout(), format)
	logger.Info("tail started",
		logging.String("host", cfg.Tenant.Host),
		logging.String("label", src.Label()),
		logging.String("output", string(renderer.Format())),
		logging.Duration("poll_interval", pollInterval),
		logging.Bool("archive", store != nil),
		logging.String("lock", session.LockPath()),
	)

	opts := logstream.Options{
		Source:        src.Name,
		Start:         poller.Resume(flags.cursor),
		PollInterval:  pollInterval,
		RetryInterval: cfg.ErrorRetryInterval(),
		MaxFailures:   cfg.Tail.MaxConsecutiveFailures,
		StopAtEnd:     cfg.Tail.EndOfStream == config.EndOfStreamStop,
		Once:          flags.once,
		Logger:        logger,
	}
	summary, err := logstream.Stream(runCtx, client, opts, emitter(runCtx, renderer, store, session, logger))

	logger.Info("tail stopped",
		logging.Int("polls", summary.Polls),
		logging.Int("failures", summary.Failures),
		logging.Int(logging.FieldEntries, summary.Entries),
		logging.String("state", summary.State.String()),
	)
	return err
}

// emitter renders each event and, when an archive is open, records it. Archive
// failures are logged and do not stop the tail.
func emitter(ctx context.Context, renderer *render.Renderer, store *archive.Store, session *tailctl.Session, logger *slog.Logger) func(logstream.Event) error {
	return func(evt logstream.Event) error {
		if err := renderer.Render(evt.Payload); err != nil {
			return err
		}
		if store == nil {
			return nil
		}
		entry := archive.Entry{
			SessionID: session.ID,
			Source:    evt.Source,
			Cursor:    evt.Cursor,
			Page:      evt.Page,
			Payload:   evt.Payload,
		}
		if err := store.Append(ctx, entry); err != nil {
			logging.WarnWithContext(logger, "archive append failed", "archive_append_failed",
				logging.String(logging.FieldImpact, "entry printed but not archived"),
				logging.String(logging.FieldErrorHint, "check disk space and archive.path permissions"),
				logging.Error(err),
			)
		}
		return nil
	}
}

type tailLock interface {
	Release() error
	LockPath() string
}

// releaseSession drops the per-source lock, warning when the unlock fails.
func releaseSession(lock tailLock, logger *slog.Logger) {
	if err := lock.Release(); err != nil {
		logging.WarnWithContext(logger, "release tail lock failed", "tail_lock_release_failed",
			logging.String("lock", lock.LockPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a later tail of this source may report it as busy"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no fidctail process is running"),
		)
	}
}
