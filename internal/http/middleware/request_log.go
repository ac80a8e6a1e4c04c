package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/ctxutil"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log != nil {
		log = log.With("middleware", "RequestLogger")
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if uid := ctxutil.ActingUserID(c.Request.Context()); uid > 0 {
			fields = append(fields, "user_id", uid)
		}

		// 4xx are mostly refused claims and bad schemes, which the service
		// already logged with their outcome code.
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Info("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}
