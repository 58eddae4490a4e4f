package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a logging severity
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	current atomic.Int32
	std     = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
)

func init() {
	current.Store(int32(LevelInfo))
}

// Init sets the initial level from its name ("debug", "info", "warn", "error")
func Init(level string) {
	SetLevel(level)
}

// SetLevel changes the active level. Unknown names fall back to info.
func SetLevel(level string) {
	current.Store(int32(ParseLevel(level)))
}

// GetLevel returns the name of the active level
func GetLevel() string {
	return Level(current.Load()).String()
}

// SetOutput redirects log output
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// ParseLevel maps a level name to a Level
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func enabled(l Level) bool {
	return l >= Level(current.Load())
}

func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		std.Printf("DEBUG "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		std.Printf("INFO "+format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		std.Printf("WARN "+format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(LevelError) {
		std.Printf("ERROR "+format, args...)
	}
}
