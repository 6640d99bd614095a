// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore applies volume sampling below the error threshold.
// Error and above always pass; Warn and below go through a zap sampler
// tuned by the Info rate from cfg.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	rate := cfg.Levels[zapcore.InfoLevel]
	sampled := zapcore.NewSamplerWithOptions(
		&bandCore{Core: core, max: zapcore.WarnLevel},
		cfg.Tick.Duration(),
		rate.Initial,
		rate.Thereafter,
	)
	unsampled := &bandCore{Core: core, min: zapcore.ErrorLevel}

	return zapcore.NewTee(unsampled, sampled)
}

// bandCore restricts a core to a level band. A zero bound leaves that
// side open, so the band cannot pin exactly at Info; the two uses here
// split at Warn/Error.
type bandCore struct {
	zapcore.Core
	min zapcore.Level
	max zapcore.Level
}

func (c *bandCore) Enabled(lvl zapcore.Level) bool {
	if c.min != 0 && lvl < c.min {
		return false
	}
	if c.max != 0 && lvl > c.max {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *bandCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

func (c *bandCore) With(fields []zapcore.Field) zapcore.Core {
	return &bandCore{Core: c.Core.With(fields), min: c.min, max: c.max}
}
