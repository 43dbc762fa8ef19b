package middleware

import (
	"net/http"
	"strings"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Claims payload del token de sesión de la consola
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware valida el bearer token de cada request y deja el usuario en
// el contexto. Un 401 es un error de sesión fatal para la consola; el core
// nunca lo reintenta.
func AuthMiddleware(cfg config.JWTConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "❌ Token de autenticación requerido",
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			logger.Warn("Invalid bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "❌ Token inválido o expirado",
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Next()
	}
}
