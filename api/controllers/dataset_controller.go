/*
 * @module api/controllers/dataset_controller
 * @description 数据集管理控制器，提供CSV上传、列表、预览、定时配置与删除API
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 上传成功即为数据集每列生成默认规则；删除数据集同时清理规则与调度
 * @dependencies dataquality-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/dataset/store.go, service/quality/engine.go
 */

package controllers

import (
	"dataquality-service/service/dataset"
	"dataquality-service/service/quality"
	"dataquality-service/service/scheduler"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// 上传文件大小上限 32MB
const maxUploadSize = 32 << 20

// DatasetController 数据集管理控制器
type DatasetController struct {
	store     *dataset.Store
	engine    *quality.Engine
	scheduler *scheduler.QualityScheduler
}

// NewDatasetController 创建数据集控制器实例
func NewDatasetController(store *dataset.Store, engine *quality.Engine, qs *scheduler.QualityScheduler) *DatasetController {
	return &DatasetController{
		store:     store,
		engine:    engine,
		scheduler: qs,
	}
}

// UpdateScheduleRequest 更新定时检查请求
type UpdateScheduleRequest struct {
	CronExpression string `json:"cron_expression" example:"0 0 2 * * *"`
}

// Upload 上传CSV数据集
// @Summary 上传CSV数据集
// @Description 上传CSV文件创建数据集，支持UTF-8与GBK编码，上传后自动为每列生成默认规则
// @Tags 数据集管理
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV文件"
// @Param name formData string false "数据集名称，缺省使用文件名"
// @Param encoding formData string false "文件编码" Enums(utf-8,gbk) default(utf-8)
// @Success 200 {object} APIResponse{data=models.Dataset} "上传成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /datasets [post]
func (c *DatasetController) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析上传表单失败", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "缺少上传文件", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "读取上传文件失败", err))
		return
	}

	encoding := strings.ToLower(r.FormValue("encoding"))
	if encoding == "" {
		encoding = "utf-8"
	}

	table, err := dataset.LoadCSV(content, encoding)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "CSV解析失败", err))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	ds, err := c.store.Save(name, header.Filename, encoding, content, table)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "保存数据集失败", err))
		return
	}

	// 为每列生成默认规则
	c.engine.EnsureRegistry(ds.ID, table.Columns())

	render.Render(w, r, SuccessResponse("数据集上传成功", ds))
}

// List 获取数据集列表
// @Summary 获取数据集列表
// @Description 分页获取数据集列表，不包含原始文件内容
// @Tags 数据集管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.Dataset} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /datasets [get]
func (c *DatasetController) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}

	datasets, total, err := c.store.List(page, size)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取数据集列表失败", err))
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: 0,
		Msg:    "获取数据集列表成功",
		Data:   datasets,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// Get 获取数据集详情
// @Summary 获取数据集详情
// @Description 根据ID获取数据集元信息
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.Dataset} "获取成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /datasets/{id} [get]
func (c *DatasetController) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := c.store.Get(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取数据集成功", ds))
}

// Preview 预览数据集
// @Summary 预览数据集
// @Description 返回数据集的列信息（含推断类型与示例值）和前若干行数据
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Param limit query int false "预览行数" default(10)
// @Success 200 {object} APIResponse{data=models.DatasetPreview} "预览成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /datasets/{id}/preview [get]
func (c *DatasetController) Preview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	ds, err := c.store.Get(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	table, err := c.store.LoadTable(ds)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "加载数据集失败", err))
		return
	}

	preview := dataset.Preview(ds.ID, table, limit)
	render.Render(w, r, SuccessResponse("数据集预览成功", preview))
}

// UpdateSchedule 配置数据集的定时检查
// @Summary 配置定时检查
// @Description 为数据集设置cron定时检查表达式（6字段：秒 分 时 日 月 周），为空则取消定时检查
// @Tags 数据集管理
// @Accept json
// @Produce json
// @Param id path string true "数据集ID"
// @Param request body UpdateScheduleRequest true "定时配置"
// @Success 200 {object} APIResponse "配置成功"
// @Failure 400 {object} APIResponse "cron表达式无效"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /datasets/{id}/schedule [put]
func (c *DatasetController) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateScheduleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if _, err := c.store.Get(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	if err := c.scheduler.Schedule(id, req.CronExpression); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "cron表达式无效", err))
		return
	}

	if err := c.store.UpdateSchedule(id, req.CronExpression); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "保存定时配置失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("定时检查配置成功", nil))
}

// Delete 删除数据集
// @Summary 删除数据集
// @Description 删除数据集，同时清理其规则注册表与定时检查
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse "删除成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /datasets/{id} [delete]
func (c *DatasetController) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.store.Delete(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "删除数据集失败", err))
		return
	}

	c.engine.Rules().Remove(id)
	c.scheduler.Unschedule(id)

	render.Render(w, r, SuccessResponse("数据集删除成功", nil))
}
