package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth 静态 API Key 认证中间件。
// 引擎的调用方是内部编排服务，密钥在部署时通过配置下发。
type APIKeyAuth struct {
	keys []string
}

// NewAPIKeyAuth 创建API Key认证中间件。密钥列表为空时认证被禁用。
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	return &APIKeyAuth{keys: keys}
}

// RequireAPIKey 要求请求携带有效的 X-API-Key 头
func (m *APIKeyAuth) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(m.keys) == 0 {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			c.Abort()
			return
		}

		for _, k := range m.keys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(apiKey)) == 1 {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid API key",
		})
		c.Abort()
	}
}
