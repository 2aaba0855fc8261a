// Package monitoring carries the analysis diagnostics stream. Channel
// grammar failures, unknown spellings and metric resolution problems are
// reported here rather than returned, so a batch run can log and continue.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var debug bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug toggles per-channel diagnostics. Off by default: a test records
// hundreds of channels and the per-channel detail drowns the failures that
// matter.
func SetDebug(enabled bool) {
	debug = enabled
}

// Debugf logs through Logf only when debug diagnostics are enabled.
func Debugf(format string, v ...interface{}) {
	if debug {
		Logf(format, v...)
	}
}
