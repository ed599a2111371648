package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crawdwall/capital-review-api/pkg/config"
	"github.com/crawdwall/capital-review-api/pkg/middleware/requestid"
)

// New builds the application logger. Production gets JSON at info level,
// everything else a console logger at debug, with LOG_LEVEL and LOG_FORMAT
// overriding either.
func New(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Encoding = "console"
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Encoding = "json"
	}
	if cfg.Log.Format != "" {
		zapCfg.Encoding = cfg.Log.Format
	}
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

// GinMiddleware emits one structured line per request.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		l.Info("http_request", fields...)
	}
}
