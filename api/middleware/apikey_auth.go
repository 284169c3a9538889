/*
 * @module api/middleware/apikey_auth
 * @description API密钥鉴权中间件，校验请求头或查询参数中的密钥
 * @architecture 中间件层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 提取密钥 -> 验证 -> 放行/拒绝
 * @rules 密钥缺失或无效一律返回401；鉴权通过后密钥信息写入请求上下文
 * @dependencies dataquality-service/service/sharing, github.com/go-chi/render
 * @refs service/sharing/apikey_service.go
 */

package middleware

import (
	"context"
	"dataquality-service/service/models"
	"dataquality-service/service/sharing"
	"net/http"

	"github.com/go-chi/render"
)

type contextKey string

// ApiKeyContextKey 鉴权通过的API密钥在请求上下文中的键
const ApiKeyContextKey contextKey = "api_key"

// ApiKeyAuth 创建API密钥鉴权中间件
// 密钥从X-API-Key请求头或api_key查询参数中提取
func ApiKeyAuth(apiKeyService *sharing.ApiKeyService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyValue := r.Header.Get("X-API-Key")
			if keyValue == "" {
				keyValue = r.URL.Query().Get("api_key")
			}

			if keyValue == "" {
				unauthorized(w, r, "缺少API密钥")
				return
			}

			apiKey, err := apiKeyService.VerifyApiKey(keyValue)
			if err != nil {
				unauthorized(w, r, "API密钥无效")
				return
			}

			ctx := context.WithValue(r.Context(), ApiKeyContextKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ApiKeyFromContext 从请求上下文中取出鉴权通过的API密钥
func ApiKeyFromContext(ctx context.Context) (*models.ApiKey, bool) {
	apiKey, ok := ctx.Value(ApiKeyContextKey).(*models.ApiKey)
	return apiKey, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    msg,
	})
}
