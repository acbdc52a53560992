// Package logs configures the leveled loggers used across the service.
package logs

import (
	"io"
	"os"
	"strings"

	"gopkg.in/op/go-logging.v1"
)

const root = "twitter"

var format = logging.MustStringFormatter(
	`%{time:2006-01-02T15:04:05.000Z07:00} %{level:.4s} %{module} %{shortfunc}: %{message}`,
)

// Setup installs the log backend for every module logger. Unknown levels
// fall back to INFO.
func Setup(level string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	backend := logging.NewBackendFormatter(logging.NewLogBackend(out, "", 0), format)
	leveled := logging.AddModuleLevel(backend)

	lvl, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		lvl = logging.INFO
	}
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
}

// Get returns the logger for a sub-module, e.g. Get("feed") logs as twitter.feed.
func Get(module string) *logging.Logger {
	if module == "" {
		return logging.MustGetLogger(root)
	}
	return logging.MustGetLogger(root + "." + module)
}
