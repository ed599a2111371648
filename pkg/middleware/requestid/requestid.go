package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request ID on both requests and responses.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware tags every request with an ID, reusing the caller's header when
// present so IDs survive proxy hops.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Value returns the request ID for the current request, or "".
func Value(c *gin.Context) string {
	id, _ := c.Value(contextKey).(string)
	return id
}
