package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/requestdata"
	"github.com/docquery/docquery-backend/internal/services"
)

const userHeader = "X-User-ID"

// IdentityMiddleware resolves the caller from the X-User-ID header. The
// value is a username taken at face value; users are materialized on
// first sight and the resolved id rides the request context.
type IdentityMiddleware struct {
	log         *logger.Logger
	userService services.UserService
}

func NewIdentityMiddleware(log *logger.Logger, userService services.UserService) *IdentityMiddleware {
	return &IdentityMiddleware{
		log:         log.With("middleware", "IdentityMiddleware"),
		userService: userService,
	}
}

func (im *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader(userHeader)
		if username == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing " + userHeader + " header"})
			return
		}
		user, err := im.userService.Ensure(c.Request.Context(), username)
		if err != nil {
			c.AbortWithStatusJSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
			return
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
			Username: user.Username,
			UserID:   user.ID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
