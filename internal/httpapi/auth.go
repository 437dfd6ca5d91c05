package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/velikanov/teleshop/internal/store"
)

const (
	tokenTTL       = 24 * time.Hour
	currentUserKey = "current_user"
)

// authClaims is the JWT payload issued on login.
type authClaims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u *store.User) (string, error) {
	claims := authClaims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *Server) parseToken(raw string) (*authClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &authClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// authOptional attaches the authenticated user to the context when a valid
// token is present; requests without one pass through as anonymous.
func (s *Server) authOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if claims, err := s.parseToken(raw); err == nil {
				c.Set(currentUserKey, claims)
			}
		}
		c.Next()
	}
}

// authRequired rejects requests without a valid token.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			unauthorized(c, "unauthorized", "Authorization token required")
			c.Abort()
			return
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			unauthorized(c, "unauthorized", "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set(currentUserKey, claims)
		c.Next()
	}
}

// adminOnly must run after authRequired.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil || currentUser(c).Role != store.RoleAdmin {
			forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *authClaims {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*authClaims)
	return claims
}
