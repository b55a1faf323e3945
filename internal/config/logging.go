package config

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var logOutput io.Writer = os.Stderr

// SetupLogging configures the default logger. Unknown levels fall back to info.
func SetupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	log.SetOutput(logOutput)
	log.SetLevel(lvl)
	log.SetReportTimestamp(true)

	if err != nil {
		log.Warn("Unknown log level, using info", "level", level)
	}
}
