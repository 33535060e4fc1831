package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls the verbosity and format of the process logger
type LoggerConfig struct {
	// Debug enables debug level output in the human readable console format.
	Debug bool

	// OutputPaths defaults to stderr when empty.
	OutputPaths []string
}

// NewLogger builds the zap logger shared by every component. Production
// settings (JSON, info level) are used unless Debug is set.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}

	var zCfg zap.Config
	if cfg.Debug {
		zCfg = zap.NewDevelopmentConfig()
		zCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zCfg = zap.NewProductionConfig()
		zCfg.Sampling = nil
	}
	zCfg.EncoderConfig.TimeKey = "timestamp"
	zCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	if len(cfg.OutputPaths) > 0 {
		zCfg.OutputPaths = cfg.OutputPaths
	}

	return zCfg.Build()
}
