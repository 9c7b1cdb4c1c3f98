package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a new logger with the specified log level. Format "json" selects
// structured output; anything else produces human-readable text.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()

	// Set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set formatter
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.SetOutput(os.Stdout)

	return logger
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
