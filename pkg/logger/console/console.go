package console

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes human readable log lines, or logfmt/JSON lines when
// the output is collected by a log shipper.
type ConsoleLogger struct {
	logger *log.Logger
}

// ConsoleLoggerParams configures a ConsoleLogger.
//
// Level is one of debug, info, warn or error and defaults to info; Debug
// forces debug. Format is text, logfmt or json. Output defaults to stderr.
type ConsoleLoggerParams struct {
	Debug  bool
	Level  string
	Format string
	Prefix string
	Output io.Writer
}

func formatter(name string) log.Formatter {
	switch strings.ToLower(name) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

func level(params ConsoleLoggerParams) log.Level {
	if params.Debug {
		return log.DebugLevel
	}
	if params.Level == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(params.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	out := params.Output
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleLogger{
		logger: log.NewWithOptions(out, log.Options{
			ReportTimestamp: true,
			Level:           level(params),
			Prefix:          params.Prefix,
			Formatter:       formatter(params.Format),
		}),
	}
}

func (c *ConsoleLogger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

func (c *ConsoleLogger) Info(message string, keyvals ...any) {
	c.logger.Info(message, keyvals...)
}

func (c *ConsoleLogger) Warn(message string, keyvals ...any) {
	c.logger.Warn(message, keyvals...)
}

func (c *ConsoleLogger) Error(message string, keyvals ...any) {
	c.logger.Error(message, keyvals...)
}

func (c *ConsoleLogger) Debug(message string, keyvals ...any) {
	c.logger.Debug(message, keyvals...)
}

// Fatal logs and exits with status 1.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
