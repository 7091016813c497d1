// Package log is the logger accepted by the execgate client.
//
// [Noop] is used when [lib.Config] has no logger. Applications plug their own
// logger by implementing [Logger], the Infof/Warningf/Errorf/Debugf methods are
// the ones the client calls, the rest can return the receiver:
//
//	type stdLogger struct{}
//
//	func (l stdLogger) Debugf(format string, args ...any) { log.Printf("DEBUG "+format, args...) }
//	// ...
//	func (l stdLogger) WithValues(log.Kv) log.Logger { return l }
package log

import "github.com/slok/execgate/internal/log"

// Logger is the client logger.
type Logger = log.Logger

// Kv are structured key value pairs.
type Kv = log.Kv

// Noop discards everything.
var Noop = log.Noop
