package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusportal/internal/profile"
)

// LoginPath is where clients send users whose session cannot be resolved.
const LoginPath = "/auth/login"

const viewerKey = "viewer"

// RequireViewer enforces bearer JWT tokens and resolves the caller's profile.
// Any failure aborts with 401 and a login redirect; nothing downstream runs without a profile.
func RequireViewer(signingKey, issuer string, resolver *profile.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			unauthorized(c, "missing bearer token")
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		viewer, err := resolver.Resolve(c.Request.Context(), claims.Subject)
		if err != nil {
			_ = c.Error(err)
			unauthorized(c, "profile not found")
			return
		}
		c.Set(viewerKey, viewer)
		c.Set("user_id", viewer.ID)
		c.Next()
	}
}

// ViewerFrom returns the viewer resolved by RequireViewer.
func ViewerFrom(c *gin.Context) (profile.Viewer, bool) {
	v, ok := c.Get(viewerKey)
	if !ok {
		return profile.Viewer{}, false
	}
	viewer, ok := v.(profile.Viewer)
	return viewer, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": LoginPath})
}
