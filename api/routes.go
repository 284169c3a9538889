/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, service/init.go
 */

package api

import (
	"dataquality-service/api/controllers"
	apimiddleware "dataquality-service/api/middleware"
	"dataquality-service/service"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-API-Key"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController(service.GlobalEventService)
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/send", eventController.SendEvent)
		r.Post("/broadcast", eventController.BroadcastEvent)
		r.Get("/history", eventController.GetEventHistory)
	})

	// 数据集与质量检查
	datasetController := controllers.NewDatasetController(service.GlobalDatasetStore, service.GlobalEngine, service.GlobalScheduler)
	ruleController := controllers.NewRuleController(service.GlobalDatasetStore, service.GlobalEngine)
	validationController := controllers.NewValidationController(service.GlobalEngine)

	r.Route("/datasets", func(r chi.Router) {
		// 数据集管理
		r.Post("/", datasetController.Upload)
		r.Get("/", datasetController.List)
		r.Get("/{id}", datasetController.Get)
		r.Delete("/{id}", datasetController.Delete)
		r.Get("/{id}/preview", datasetController.Preview)
		r.Put("/{id}/schedule", datasetController.UpdateSchedule)

		// 规则注册表
		r.Get("/{id}/rules", ruleController.GetRules)
		r.Put("/{id}/rules/{column}", ruleController.UpdateRule)

		// 质量检查与汇总下载，可按需启用API密钥鉴权与限流
		r.Group(func(r chi.Router) {
			if os.Getenv("REQUIRE_API_KEY") == "true" {
				r.Use(apimiddleware.ApiKeyAuth(service.GlobalApiKeyService))
			}
			if service.GlobalRateLimiter != nil {
				r.Use(apimiddleware.RateLimit(service.GlobalRateLimiter, apimiddleware.DefaultRateLimitConfig()))
			}
			r.Post("/{id}/check", validationController.RunCheck)
			r.Get("/{id}/check/export", validationController.ExportSummary)
		})
	})

	// API密钥管理
	r.Route("/apikeys", func(r chi.Router) {
		apiKeyController := controllers.NewApiKeyController(service.GlobalApiKeyService)
		r.Post("/", apiKeyController.CreateApiKey)
		r.Get("/", apiKeyController.GetApiKeys)
		r.Put("/{id}", apiKeyController.UpdateApiKey)
		r.Delete("/{id}", apiKeyController.DeleteApiKey)
	})
}
