// Package util holds terminal output helpers shared by the printadmin CLIs.
package util

import (
	"fmt"
	"time"
)

// Global quiet mode flag
var quietMode bool

// SetQuietMode enables or disables quiet mode for all terminal output
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// IsQuietMode returns true if quiet mode is enabled
func IsQuietMode() bool {
	return quietMode
}

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorDim    = "\033[2m"
)

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	if quietMode {
		logLine("INFO", ColorBlue, message)
		return
	}
	fmt.Printf("  %s✓%s %s\n", ColorGreen, ColorReset, message)
}

// ShowError displays an error message. Errors are shown even in quiet mode.
func ShowError(message string) {
	if quietMode {
		logLine("ERROR", ColorRed, message)
		return
	}
	fmt.Printf("  %s✗%s %s\n", ColorRed, ColorReset, message)
}

// ShowWarning displays a warning message. Warnings are shown even in quiet mode.
func ShowWarning(message string) {
	if quietMode {
		logLine("WARN", ColorYellow, message)
		return
	}
	fmt.Printf("  %s⚠%s %s\n", ColorYellow, ColorReset, message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	if quietMode {
		return
	}
	fmt.Printf("  %s•%s %s\n", ColorCyan, ColorReset, message)
}

func logLine(level, color, message string) {
	timestamp := time.Now().Format(time.RFC3339)
	fmt.Printf("%s%s%s %s[%s]%s %s\n", ColorDim, timestamp, ColorReset, color, level, ColorReset, message)
}
