package observability

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelSwitch is the single mutable piece of logging configuration.
// It is safe for concurrent use.
type LevelSwitch struct {
	level zap.AtomicLevel
}

// NewLevelSwitch creates a LevelSwitch set to the given level name.
func NewLevelSwitch(level string) (*LevelSwitch, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &LevelSwitch{level: zap.NewAtomicLevelAt(l)}, nil
}

// Set changes the minimum level by name.
func (s *LevelSwitch) Set(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	s.level.SetLevel(l)
	return nil
}

// SetLevel changes the minimum level.
func (s *LevelSwitch) SetLevel(level zapcore.Level) {
	s.level.SetLevel(level)
}

// Level returns the current minimum level.
func (s *LevelSwitch) Level() zapcore.Level {
	return s.level.Level()
}

// Enabled implements zapcore.LevelEnabler.
func (s *LevelSwitch) Enabled(level zapcore.Level) bool {
	return s.level.Enabled(level)
}

// String returns the current level name.
func (s *LevelSwitch) String() string {
	return s.level.String()
}

// Handler returns an HTTP handler that reports the level on GET and
// changes it on PUT ({"level":"debug"}).
func (s *LevelSwitch) Handler() http.Handler {
	return s.level
}

// ParseLevel parses a level name. Both zap names (debug, info, warn,
// error, fatal) and the Serilog names used by compact log event format
// servers (Verbose, Information, Warning, ...) are accepted.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info", "information":
		return zapcore.InfoLevel, nil
	case "verbose", "trace", "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// serilogLevelName maps a zap level to its compact log event format name.
func serilogLevelName(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return "Debug"
	case zapcore.InfoLevel:
		return "Information"
	case zapcore.WarnLevel:
		return "Warning"
	case zapcore.ErrorLevel:
		return "Error"
	default:
		return "Fatal"
	}
}
