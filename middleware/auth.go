package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"medilink/errs"
)

// Claims is the principal minted by the external auth service: which staff
// member, in which hospital. The delivery layer only consumes it.
type Claims struct {
	StaffID  string `json:"staffId"`
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// ParseToken validates an HMAC-signed principal token.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errs.ErrUnauthorized
	}
	if claims.StaffID == "" || claims.TenantID == "" {
		return nil, errs.ErrUnauthorized
	}
	return claims, nil
}

// TokenFromRequest accepts the Authorization header or, for clients that
// cannot set headers (the websocket upgrade), a token query parameter.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// JWTAuthMiddleware gates the HTTP surface and stores the principal ids in
// the request context.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenString := TokenFromRequest(c.Request)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("staffId", claims.StaffID)
		c.Set("tenantId", claims.TenantID)
		c.Next()
	}
}
