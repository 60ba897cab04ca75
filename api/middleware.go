package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xraph/distribution/caller"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

const ctxRequestID = "api.request_id"

// RequestID tags each request with an id, reusing a client supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}

// Authenticate attaches the bearer token's subject to the request context
// as the caller. Requests without an Authorization header pass through
// anonymously; a bad token is rejected.
func Authenticate(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthenticated", ErrMissingToken)
			return
		}
		addr, err := v.Verify(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthenticated", err)
			return
		}
		c.Request = c.Request.WithContext(caller.With(c.Request.Context(), addr))
		c.Next()
	}
}

// RequireCaller rejects anonymous requests.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := caller.From(c.Request.Context()); !ok {
			abort(c, http.StatusUnauthorized, "unauthenticated", ErrMissingToken)
			return
		}
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

func abort(c *gin.Context, status int, code string, err error) {
	body := gin.H{"error": code, "request_id": requestID(c)}
	if err != nil {
		body["message"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}
