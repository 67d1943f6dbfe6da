// Package monitoring holds the process-wide diagnostic logger. The
// pipeline, provider clients, and web server all log through Logf so
// the CLIs can redirect or mute output in one place.
package monitoring

import "log"

// Logf formats and writes one diagnostic line. Defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil f mutes logging entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
