package logger

import (
	"os"
	"strings"

	"fleetbilling/internal/config"

	"github.com/sirupsen/logrus"
)

// New builds the process logger from the log section of the config.
// Unknown levels fall back to info.
func New(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}

// LogError records a failed step with the component and operation that raised it.
func LogError(log logrus.FieldLogger, component, operation string, input interface{}, err error) {
	log.WithFields(logrus.Fields{
		"component": component,
		"operation": operation,
		"input":     input,
	}).WithError(err).Error(operation + " failed")
}
