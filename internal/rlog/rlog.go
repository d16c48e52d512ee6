// Package rlog provides the one package-wide logger handle the core and
// its collaborators write to. It wraps github.com/charmbracelet/log the
// way the rest of this module's domain stack pulls that dependency in
// (see chirino-memory-service's internal/cmd packages).
package rlog

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	once    sync.Once
	current *log.Logger
)

// Logger returns the process-wide logger, constructing it with sane
// defaults (stderr, text formatter, Info level) on first use.
func Logger() *log.Logger {
	once.Do(func() {
		current = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: false,
			Level:           log.InfoLevel,
		})
	})
	return current
}

// SetLevel adjusts verbosity; called from the CLI's --verbose flag.
func SetLevel(lvl log.Level) {
	Logger().SetLevel(lvl)
}
