package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"promotion-engine/internal/shared/response"
)

// Recovery turns a handler panic into a 500 envelope. When the handler had
// already started its response the connection is only aborted, since a
// second body would corrupt the first.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.Error().
				Str("request_id", c.GetString("request_id")).
				Str("method", c.Request.Method).
				Str("route", c.FullPath()).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Handler panicked")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.InternalServerError(c, "Internal server error")
			c.Abort()
		}()

		c.Next()
	}
}
