/*
 * @module api/controllers/validation_controller
 * @description 质量校验控制器，提供数据集质量检查执行与汇总CSV下载API
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 质量检查 -> 汇总返回/CSV下载
 * @rules 校验结果不落库，每次请求按当前规则重新计算
 * @dependencies dataquality-service/service/quality, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/quality/engine.go, service/quality/exporter.go
 */

package controllers

import (
	"dataquality-service/service/quality"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ValidationController 质量校验控制器
type ValidationController struct {
	engine *quality.Engine
}

// NewValidationController 创建质量校验控制器实例
func NewValidationController(engine *quality.Engine) *ValidationController {
	return &ValidationController{engine: engine}
}

// RunCheck 执行质量检查
// @Summary 执行质量检查
// @Description 按当前规则注册表对数据集执行一次完整质量检查，返回汇总报告
// @Tags 质量校验
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.ValidationReport} "检查完成"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /datasets/{id}/check [post]
func (c *ValidationController) RunCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := c.engine.RunCheck(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "质量检查失败", err))
		return
	}

	msg := "质量检查完成"
	if report.NoIssuesFound {
		msg = "质量检查完成，未发现问题"
	}
	render.Render(w, r, SuccessResponse(msg, report))
}

// ExportSummary 下载汇总CSV
// @Summary 下载质量检查汇总
// @Description 执行一次质量检查并以CSV文件形式下载汇总结果
// @Tags 质量校验
// @Produce text/csv
// @Param id path string true "数据集ID"
// @Success 200 {string} string "CSV文件"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /datasets/{id}/check/export [get]
func (c *ValidationController) ExportSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := c.engine.RunCheck(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "质量检查失败", err))
		return
	}

	data, err := quality.ExportSummaryCSV(report.Summary)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "汇总导出失败", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", quality.ExportFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
