package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"fleetbilling/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"

	tokenCookie = "access_token"
)

// PermissionSource resolves the permission codes granted to a role
type PermissionSource interface {
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
}

var (
	jwtSecret  []byte
	permSource PermissionSource
)

// Init wires the signing secret and the permission source used by the middleware.
func Init(secret string, source PermissionSource) {
	jwtSecret = []byte(secret)
	permSource = source
	ClearPermissionCache("")
}

func GetJWTSecret() []byte {
	return jwtSecret
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, token string, maxAge int, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(tokenCookie, token, maxAge, "/", "", secure, true)
}

func ClearTokenCookie(c *gin.Context, secure bool) {
	SetTokenCookie(c, "", -1, secure)
}

// tokenFromRequest reads the cookie first, then the Authorization header.
// On failure it returns the message for the 401 response.
func tokenFromRequest(c *gin.Context) (token string, problem string) {
	if tokenString, err := c.Cookie(tokenCookie); err == nil && tokenString != "" {
		return tokenString, ""
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// authenticate parses the request token and stores the caller in the gin context.
func authenticate(c *gin.Context) (string, bool) {
	tokenString, problem := tokenFromRequest(c)
	if problem != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
		return "", false
	}

	claims, err := ParseToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return "", false
	}

	userRole, ok := claims["role"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return "", false
	}
	userID, _ := claims["sub"].(string)

	c.Set(CtxUserID, userID)
	c.Set(CtxUserRole, userRole)
	return userRole, true
}

// RequireAuth only checks that the caller holds a valid token
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// RequirePermission validates the JWT and checks the caller's role grants every required permission code.
func RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := authenticate(c)
		if !ok {
			return
		}

		userPerms, err := getPermissionsForRole(c.Request.Context(), userRole)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		permSet := make(map[string]bool, len(userPerms))
		for _, p := range userPerms {
			permSet[p] = true
		}

		for _, required := range requiredPerms {
			if !permSet[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Next()
	}
}

// UserID returns the authenticated caller's id, or "" on unauthenticated routes.
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserID)
	id, _ := v.(string)
	return id
}

// --- Permission cache ---

type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

var (
	permCache    sync.Map // roleName -> permCacheEntry
	permCacheTTL = 5 * time.Minute
)

func getPermissionsForRole(ctx context.Context, roleName string) ([]string, error) {
	if entry, ok := permCache.Load(roleName); ok {
		cached := entry.(permCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	if permSource == nil {
		return nil, errors.New("permission middleware not initialized")
	}

	codes, err := permSource.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	permCache.Store(roleName, permCacheEntry{
		codes:     codes,
		expiresAt: time.Now().Add(permCacheTTL),
	})
	return codes, nil
}

// ClearPermissionCache removes cached permissions for a role, or for all roles if empty
func ClearPermissionCache(roleName string) {
	if roleName == "" {
		permCache.Range(func(key, _ interface{}) bool {
			permCache.Delete(key)
			return true
		})
		return
	}
	permCache.Delete(roleName)
}
