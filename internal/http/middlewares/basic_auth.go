package middlewares

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
)

// UserReader is the slice of the store the middleware needs; tests fake it.
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// BasicAuth authenticates HTTP Basic credentials against the configured
// admin identity first, then against registered users. The admin secret
// is config-borne, never a stored user row.
type BasicAuth struct {
	adminEmail string
	adminHash  string
	users      UserReader
}

func NewBasicAuth(adminEmail, adminPassword string, users UserReader) (*BasicAuth, error) {
	adminHash := ""

	if adminEmail != "" && adminPassword != "" {
		hash, err := security.HashPassword(adminPassword)

		if err != nil {
			return nil, err
		}

		adminHash = hash
	}

	return &BasicAuth{
		adminEmail: adminEmail,
		adminHash:  adminHash,
		users:      users,
	}, nil
}

func (m *BasicAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()

		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="userhub"`)
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		role, ok := m.resolve(c.Request.Context(), email, password)

		if !ok {
			abortUnauthorized(c, "Invalid credentials")
			return
		}

		c.Set(string(CtxEmail), email)
		c.Set(string(CtxRole), string(role))

		c.Next()
	}
}

func (m *BasicAuth) resolve(ctx context.Context, email, password string) (user.Role, bool) {
	if m.adminHash != "" && subtle.ConstantTimeCompare([]byte(email), []byte(m.adminEmail)) == 1 {
		if security.CheckPassword(m.adminHash, password) {
			return user.RoleAdmin, true
		}

		return "", false
	}

	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := m.users.GetByEmail(cctx, email)

	if err != nil {
		// burn comparable time so absent users cost the same as a mismatch
		security.CheckPassword(m.adminHash, password)
		return "", false
	}

	if !security.CheckPassword(u.PasswordHash, password) {
		return "", false
	}

	return u.Role, true
}

func (m *BasicAuth) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		if role != string(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(string(CtxEmail))
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(string(CtxRole))
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
