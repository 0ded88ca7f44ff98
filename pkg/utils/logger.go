package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns the process logger, named "katalog". Debug mode uses the
// development config (console, debug level); otherwise JSON at info level with
// stack traces from DPanic up.
func NewLogger(debug bool, fields ...zap.Field) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction(zap.AddStacktrace(zapcore.DPanicLevel))
	}
	if err != nil {
		return nil, err
	}
	return logger.Named("katalog").With(fields...), nil
}
