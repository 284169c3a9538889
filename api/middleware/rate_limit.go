/*
 * @module api/middleware/rate_limit
 * @description 限流中间件，质量检查等重型接口的请求频率控制
 * @architecture 中间件层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 构建限流规则 -> Redis检查 -> 放行/429
 * @rules 鉴权通过的请求按API密钥限流，其余走全局限流；限流器不可用时放行
 * @dependencies dataquality-service/service/rate_limiter, github.com/go-chi/render
 * @refs service/rate_limiter/redis_rate_limiter.go
 */

package middleware

import (
	"dataquality-service/service/rate_limiter"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// RateLimitConfig 限流中间件配置
type RateLimitConfig struct {
	GlobalMaxRequests int // 全局窗口内最大请求数
	ApiKeyMaxRequests int // 单个API密钥窗口内最大请求数
	TimeWindow        int // 窗口长度（秒）
}

// DefaultRateLimitConfig 默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		GlobalMaxRequests: 100,
		ApiKeyMaxRequests: 20,
		TimeWindow:        60,
	}
}

// RateLimit 创建限流中间件
func RateLimit(limiter *rate_limiter.RedisRateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rules := []rate_limiter.RateLimitRule{
				{
					Type:        "global",
					TimeWindow:  config.TimeWindow,
					MaxRequests: config.GlobalMaxRequests,
				},
			}

			if apiKey, ok := ApiKeyFromContext(r.Context()); ok {
				rules = append(rules, rate_limiter.RateLimitRule{
					Type:        "api_key",
					TargetID:    apiKey.ID,
					TimeWindow:  config.TimeWindow,
					MaxRequests: config.ApiKeyMaxRequests,
				})
			}

			result, err := limiter.CheckRateLimit(r.Context(), rules)
			if err != nil {
				// 限流器故障不阻断业务
				slog.Warn("限流检查失败，请求放行", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

			if !result.Allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusTooManyRequests,
					"msg":    result.Message,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
