package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/content-workflow/internal/domain/entity"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	principalKey = "principal"
)

// principalMiddleware reads the caller identity set by the upstream gateway
func principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(headerUserID), 10, 64)
		role := c.GetHeader(headerUserRole)
		if err != nil || id <= 0 || role == "" {
			writeProblem(c, http.StatusUnauthorized, "unauthorized", "X-User-ID and X-User-Role headers are required")
			c.Abort()
			return
		}

		c.Set(principalKey, entity.Principal{ID: id, Role: role})
		c.Next()
	}
}

func principalFrom(c *gin.Context) entity.Principal {
	p, _ := c.MustGet(principalKey).(entity.Principal)
	return p
}
