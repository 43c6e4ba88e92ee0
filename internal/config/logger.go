package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the JSON logger shared by every component.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// LogError writes an error entry with a consistent set of fields.
func LogError(logger logrus.FieldLogger, module, function, message string, data any, err error) {
	logger.WithFields(logrus.Fields{
		"module":   module,
		"function": function,
		"data":     data,
	}).WithError(err).Error(message)
}
