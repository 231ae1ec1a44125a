// Package logging constructs the logfmt logger shared by all commands.
// Diagnostic output goes to stderr so it never mixes with the build
// summary printed on stdout.
package logging

import (
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// New returns a leveled logfmt logger writing to w. With verbose set,
// debug records pass the filter; otherwise only info and above.
func New(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))

	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() log.Logger {
	return log.NewNopLogger()
}
