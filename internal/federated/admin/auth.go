package admin

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// adminTokenKey is the gin context key the matched bearer token is stored
// under, so RateLimiter can key buckets by operator identity instead of raw
// IP — operators dialing in from a shared office NAT would otherwise all
// throttle each other under one IP-keyed bucket.
const adminTokenKey = "admin_token"

// AuthMiddleware validates a bearer token against the comma-separated list
// in ADMIN_AUTH_TOKENS, one per operator. If the variable is unset, every
// request is allowed — development mode, matching the teacher's fail-open
// posture for an unconfigured secret. A validated token is stashed in the
// request context so the rate limiter can key by operator rather than IP.
func AuthMiddleware() gin.HandlerFunc {
	var valid []string
	for _, t := range strings.Split(os.Getenv("ADMIN_AUTH_TOKENS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			valid = append(valid, t)
		}
	}

	return func(c *gin.Context) {
		if len(valid) == 0 {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			c.Abort()
			return
		}

		presented := parts[1]
		for _, t := range valid {
			if subtle.ConstantTimeCompare([]byte(presented), []byte(t)) == 1 {
				c.Set(adminTokenKey, presented)
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
		c.Abort()
	}
}
