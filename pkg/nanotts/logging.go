package nanotts

import "github.com/charmbracelet/log"

// setDebugLogging switches the shared charmbracelet/log logger between
// Info and Debug level, following the teacher's InitializeLogging
// convention of a single process-wide verbosity knob rather than a
// per-package logger. Synthesis and transcode failures are logged at
// Debug — visible to an operator who asks for it, never surfaced to
// Stream's caller as an error (spec.md §7). Idle-flush timeouts and
// cancellation are not logged.
func setDebugLogging(enabled bool) {
	if enabled {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
