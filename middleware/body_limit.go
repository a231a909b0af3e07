package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labworks/labops/utils"
)

// MaxBodySize caps the request body at limit bytes. Oversized multipart
// uploads fail during form parsing in the handler; the Content-Length check
// here rejects the obvious cases before any bytes are read.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > limit {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "request body too large")
			ctx.Abort()
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		ctx.Next()
	}
}
