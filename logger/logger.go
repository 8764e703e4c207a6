package logger

import (
	"github.com/jsndz/notifyengine/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the process-wide structured logger. Production mode
// (APP_ENV=prod) uses zap's JSON encoder; anything else gets the
// human-readable development encoder.
func InitLogger() (*zap.Logger, error) {
	if utils.GetEnv("APP_ENV") == "prod" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
