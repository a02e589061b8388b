// Package log configures the zerolog loggers used across cat721-cli.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger. Command output goes to stdout, so logs
// default to stderr.
var Logger zerolog.Logger

// Component loggers.
var (
	Tracker    zerolog.Logger
	RPC        zerolog.Logger
	Minter     zerolog.Logger
	Spend      zerolog.Logger
	Mint       zerolog.Logger
	Wallet     zerolog.Logger
	Storage    zerolog.Logger
	Collection zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init reconfigures the global logger. A non-empty file receives a JSON
// copy of every record next to the console stream.
func Init(level string, jsonOutput bool, file string) error {
	var console io.Writer = os.Stderr
	if !jsonOutput {
		console = consoleWriter(os.Stderr)
	}

	out := console
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	Logger = newLogger(out, level)
	initComponentLoggers()
	return nil
}

// SetOutput points every logger at w. Tests use it to capture records.
func SetOutput(w io.Writer, level string) {
	Logger = newLogger(w, level)
	initComponentLoggers()
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(consoleWriter(w), level)
}

// NewJSONLogger creates a JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(w, level)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to zerolog. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func initComponentLoggers() {
	Tracker = WithComponent("tracker")
	RPC = WithComponent("rpc")
	Minter = WithComponent("minter")
	Spend = WithComponent("spend")
	Mint = WithComponent("mint")
	Wallet = WithComponent("wallet")
	Storage = WithComponent("storage")
	Collection = WithComponent("collection")
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithCollection returns a logger tagged with a collection id.
func WithCollection(l zerolog.Logger, collectionID string) zerolog.Logger {
	return l.With().Str("collection", collectionID).Logger()
}

// Timed logs the duration of an operation at debug level when the
// returned func is called.
func Timed(l zerolog.Logger, op string) func() {
	start := time.Now()
	return func() {
		l.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("done")
	}
}
