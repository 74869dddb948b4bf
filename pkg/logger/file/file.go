package file

import (
	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLogger writes JSON lines into a size-rotated log file. It is meant to
// keep a durable trace of long ingestion runs next to the console output.
type FileLogger struct {
	logger *log.Logger
	out    *lumberjack.Logger
}

// FileLoggerParams contains configuration for creating a FileLogger.
// MaxSizeMB and MaxBackups fall back to 50 and 5.
type FileLoggerParams struct {
	Path       string
	Debug      bool
	MaxSizeMB  int
	MaxBackups int
}

// NewFileLogger creates a logger writing to params.Path.
func NewFileLogger(params FileLoggerParams) *FileLogger {
	maxSize := params.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}
	maxBackups := params.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 5
	}
	out := &lumberjack.Logger{
		Filename:   params.Path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}

	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       log.JSONFormatter,
	})
	return &FileLogger{logger: logger, out: out}
}

func (f *FileLogger) Log(message string, keyvals ...any) {
	f.logger.Print(message, keyvals...)
}

func (f *FileLogger) Info(message string, keyvals ...any) {
	f.logger.Info(message, keyvals...)
}

func (f *FileLogger) Warn(message string, keyvals ...any) {
	f.logger.Warn(message, keyvals...)
}

func (f *FileLogger) Error(message string, keyvals ...any) {
	f.logger.Error(message, keyvals...)
}

func (f *FileLogger) Debug(message string, keyvals ...any) {
	f.logger.Debug(message, keyvals...)
}

// Fatal records the message without exiting. The process exit is left to
// the console backend so every backend gets to see the message.
func (f *FileLogger) Fatal(message string, keyvals ...any) {
	f.logger.Log(log.FatalLevel, message, keyvals...)
}

// Close closes the underlying log file.
func (f *FileLogger) Close() error {
	return f.out.Close()
}
