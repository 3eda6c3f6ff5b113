// Package monitoring carries the analysis pipeline's diagnostic logging.
// The stage packages (tracker, cache, pipeline) all log through Logf, so a
// host application can redirect or mute their diagnostics in one place.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Replace it with SetLogger; the stage packages never log any other way.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op so
// callers can silence diagnostics without guarding every call site.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
