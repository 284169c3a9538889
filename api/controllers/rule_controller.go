/*
 * @module api/controllers/rule_controller
 * @description 质量规则控制器，提供数据集规则注册表的查询与按列编辑API
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 规则仅存在于会话存储，不做持久化；未知列返回404
 * @dependencies dataquality-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/ruleset/session_store.go
 */

package controllers

import (
	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
	"dataquality-service/service/quality"
	"dataquality-service/service/ruleset"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RuleController 质量规则控制器
type RuleController struct {
	store  *dataset.Store
	engine *quality.Engine
}

// NewRuleController 创建质量规则控制器实例
func NewRuleController(store *dataset.Store, engine *quality.Engine) *RuleController {
	return &RuleController{
		store:  store,
		engine: engine,
	}
}

// RegistryResponse 规则注册表响应
type RegistryResponse struct {
	DatasetID string                 `json:"dataset_id"`
	Columns   []string               `json:"columns"`
	Rules     map[string]models.Rule `json:"rules"`
}

// GetRules 获取数据集的规则注册表
// @Summary 获取规则注册表
// @Description 返回数据集每列当前生效的质量规则
// @Tags 质量规则
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=RegistryResponse} "获取成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /datasets/{id}/rules [get]
func (c *RuleController) GetRules(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := c.store.Get(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	registry := c.engine.EnsureRegistry(ds.ID, ds.Columns)

	render.Render(w, r, SuccessResponse("获取规则注册表成功", RegistryResponse{
		DatasetID: ds.ID,
		Columns:   registry.Columns(),
		Rules:     registry.Rules(),
	}))
}

// UpdateRule 更新指定列的质量规则
// @Summary 更新列规则
// @Description 整体替换指定列的质量规则配置
// @Tags 质量规则
// @Accept json
// @Produce json
// @Param id path string true "数据集ID"
// @Param column path string true "列名"
// @Param rule body models.Rule true "规则配置"
// @Success 200 {object} APIResponse{data=models.Rule} "更新成功"
// @Failure 400 {object} APIResponse "规则配置无效"
// @Failure 404 {object} APIResponse "数据集或列不存在"
// @Router /datasets/{id}/rules/{column} [put]
func (c *RuleController) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	column := chi.URLParam(r, "column")

	var rule models.Rule
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if !rule.Type.IsValid() {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "不支持的规则类型", nil))
		return
	}

	ds, err := c.store.Get(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	c.engine.EnsureRegistry(ds.ID, ds.Columns)

	if err := c.engine.Rules().UpdateRule(ds.ID, column, rule); err != nil {
		var unknownColumn *ruleset.ErrUnknownColumn
		if errors.As(err, &unknownColumn) {
			render.Render(w, r, ErrorResponse(http.StatusNotFound, "列不存在", err))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新规则失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("规则更新成功", rule.Normalize()))
}
