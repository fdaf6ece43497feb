// Package debug provides global debug trace flags
package debug

import "fmt"

// Enabled controls whether debug trace lines are printed (detector events, mode changes)
var Enabled bool

// Frames controls whether one trace line is printed per processed frame (EAR, MAR, angles)
// Use -frames to enable; at 30 fps this is very verbose
var Frames bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Println(msg)
	}
}

// FrameLog prints a message only if per-frame tracing is enabled
func FrameLog(format string, args ...interface{}) {
	if Frames {
		fmt.Printf(format, args...)
	}
}
