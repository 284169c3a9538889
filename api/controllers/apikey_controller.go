/*
 * @module api/controllers/apikey_controller
 * @description API密钥管理控制器，提供密钥的创建、列表、更新与吊销API
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 密钥明文只在创建响应中出现一次
 * @dependencies dataquality-service/service/sharing, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/sharing/apikey_service.go, api/middleware/apikey_auth.go
 */

package controllers

import (
	"dataquality-service/service/models"
	"dataquality-service/service/sharing"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ApiKeyController API密钥管理控制器
type ApiKeyController struct {
	apiKeyService *sharing.ApiKeyService
}

// NewApiKeyController 创建API密钥控制器实例
func NewApiKeyController(apiKeyService *sharing.ApiKeyService) *ApiKeyController {
	return &ApiKeyController{
		apiKeyService: apiKeyService,
	}
}

// CreateApiKeyRequest 创建API密钥请求
type CreateApiKeyRequest struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// CreateApiKeyResponse 创建API密钥响应
type CreateApiKeyResponse struct {
	ApiKey *models.ApiKey `json:"api_key"`
	Key    string         `json:"key"` // 完整密钥，仅此一次返回
}

// CreateApiKey 创建API密钥
// @Summary 创建API密钥
// @Description 创建新的API密钥，完整密钥仅在本次响应中返回
// @Tags API密钥
// @Accept json
// @Produce json
// @Param request body CreateApiKeyRequest true "密钥信息"
// @Success 200 {object} APIResponse{data=CreateApiKeyResponse} "创建成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /apikeys [post]
func (c *ApiKeyController) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	var req CreateApiKeyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if req.Name == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "密钥名称不能为空", nil))
		return
	}

	apiKey, fullKey, err := c.apiKeyService.CreateApiKey(req.Name, req.Description, req.ExpiresAt)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "创建API密钥失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("API密钥创建成功", CreateApiKeyResponse{
		ApiKey: apiKey,
		Key:    fullKey,
	}))
}

// GetApiKeys 获取API密钥列表
// @Summary 获取API密钥列表
// @Description 获取所有API密钥信息（不包含密钥本身）
// @Tags API密钥
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.ApiKey} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /apikeys [get]
func (c *ApiKeyController) GetApiKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := c.apiKeyService.GetApiKeys()
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取API密钥列表失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取API密钥列表成功", keys))
}

// UpdateApiKey 更新API密钥
// @Summary 更新API密钥
// @Description 更新API密钥的描述或状态
// @Tags API密钥
// @Accept json
// @Produce json
// @Param id path string true "密钥ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} APIResponse "更新成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /apikeys/{id} [put]
func (c *ApiKeyController) UpdateApiKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	// 只允许更新描述与状态
	allowed := map[string]interface{}{}
	if v, ok := updates["description"]; ok {
		allowed["description"] = v
	}
	if v, ok := updates["status"]; ok {
		allowed["status"] = v
	}
	if len(allowed) == 0 {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "没有可更新的字段", nil))
		return
	}

	if err := c.apiKeyService.UpdateApiKey(id, allowed); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新API密钥失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("API密钥更新成功", nil))
}

// DeleteApiKey 吊销API密钥
// @Summary 吊销API密钥
// @Description 删除指定的API密钥
// @Tags API密钥
// @Produce json
// @Param id path string true "密钥ID"
// @Success 200 {object} APIResponse "吊销成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /apikeys/{id} [delete]
func (c *ApiKeyController) DeleteApiKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.apiKeyService.DeleteApiKey(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "吊销API密钥失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("API密钥吊销成功", nil))
}
