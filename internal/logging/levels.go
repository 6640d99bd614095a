// internal/logging/levels.go
package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below Debug (-2 where Debug is -1) and carries
// wire-level detail: dispatched step payloads, raw model responses,
// watcher poll results. Production configs normally filter it out.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name. It accepts every name zap
// understands plus "trace", case-insensitively. On error the returned
// level is Info so callers can report the problem and keep a usable
// default.
func LevelFromString(name string) (zapcore.Level, error) {
	if strings.EqualFold(name, "trace") {
		return TraceLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel, err
	}
	return lvl, nil
}
