package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fathima-sithara/conversation-service/internal/config"
)

var (
	instance *zap.SugaredLogger
	once     sync.Once
)

// New builds the process-wide logger from the service config: console
// output at debug level in development, JSON at info level everywhere
// else. Subsequent calls return the same instance.
func New(cfg *config.Config) (*zap.SugaredLogger, error) {
	var err error
	once.Do(func() {
		zc := zap.NewProductionConfig()
		if cfg.App.Env == "development" {
			zc = zap.NewDevelopmentConfig()
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var l *zap.Logger
		l, err = zc.Build()
		if err != nil {
			return
		}
		instance = l.Named("conversation-service").Sugar()
	})
	return instance, err
}
