package logging

import (
	"io"
	"log"
	"os"
)

// Logger provides level-based logging functionality
type Logger struct {
	debugEnabled bool
	infoLogger   *log.Logger
	debugLogger  *log.Logger
}

// Global logger instance. A default is installed at package init so
// library callers who never call Initialize (e.g. tier engines used
// directly in tests) still see Info/Error output instead of silent drops.
var globalLogger = newLogger(false)

func newLogger(debugMode bool) *Logger {
	var output io.Writer = os.Stderr
	return &Logger{
		debugEnabled: debugMode,
		infoLogger:   log.New(output, "", log.LstdFlags),
		debugLogger:  log.New(output, "", log.LstdFlags),
	}
}

// Initialize sets up the global logger with debug mode setting
// All logging goes to stderr to avoid polluting stdout (important for MCP servers)
func Initialize(debugMode bool) {
	// Always use stderr for logging to avoid interfering with MCP stdio protocol
	globalLogger = newLogger(debugMode)
}

// Info logs informational messages (always shown)
func Info(format string, args ...interface{}) {
	globalLogger.infoLogger.Printf(format, args...)
}

// Debug logs debug messages (only shown when debug mode is enabled)
func Debug(format string, args ...interface{}) {
	if globalLogger.debugEnabled {
		globalLogger.debugLogger.Printf("DEBUG: "+format, args...)
	}
}

// Warn logs warning messages (always shown). The Judge's non-fatal
// degradation paths (replaced executions, tier fallbacks, clamped
// scores) use this rather than Error, which is reserved for surfaced
// failures.
func Warn(format string, args ...interface{}) {
	globalLogger.infoLogger.Printf("WARN: "+format, args...)
}

// Error logs error messages (always shown)
func Error(format string, args ...interface{}) {
	globalLogger.infoLogger.Printf("ERROR: "+format, args...)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return globalLogger.debugEnabled
}
