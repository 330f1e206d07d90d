package config

const (
	defaultStateDir               = "~/.local/state/fidctail"
	defaultArchiveFile            = "archive.db"
	defaultPollInterval           = 10
	defaultErrorRetryInterval     = 10
	defaultRequestTimeout         = 30
	defaultMaxConsecutiveFailures = 0
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"

	EndOfStreamRestart = "restart"
	EndOfStreamStop    = "stop"

	OutputAuto   = "auto"
	OutputPretty = "pretty"
	OutputJSON   = "json"
	OutputYAML   = "yaml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Tail: Tail{
			PollInterval:           defaultPollInterval,
			ErrorRetryInterval:     defaultErrorRetryInterval,
			RequestTimeout:         defaultRequestTimeout,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
			EndOfStream:            EndOfStreamRestart,
			Output:                 OutputAuto,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
