package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "dia360.actor"

// Claims bearer token payload: sub is the user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies the HS256 bearer token and stores the caller on the context.
// An empty secret disables verification and every caller acts as superadmin.
func Authenticate(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) {
			c.Set(actorKey, service.Actor{Subject: "local", Role: model.RoleSuperadmin})
			c.Next()
		}
	}
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		var claims Claims
		tok, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil || !tok.Valid {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		if claims.Subject == "" || !claims.Role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token lacks subject or role"})
			return
		}
		c.Set(actorKey, service.Actor{Subject: claims.Subject, Role: claims.Role})
		c.Next()
	}
}

// RequireAdmin lets admin and superadmin through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(service.Actor); ok {
			return a
		}
	}
	return service.Actor{}
}

// Me GET /api/me
func Me(c *gin.Context) {
	a := actorFrom(c)
	c.JSON(http.StatusOK, gin.H{"sub": a.Subject, "role": a.Role, "is_admin": a.Role.IsAdmin()})
}
