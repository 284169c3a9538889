/*
 * @module service/quality/engine
 * @description 数据质量引擎，编排数据集加载、规则快照、校验执行、聚合与结果分发
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 数据集加载 -> 注册表快照 -> 校验 -> 聚合 -> 指标/事件/通知
 * @rules 单次运行读取规则的一致快照；问题与汇总每次重新计算，不做持久化
 * @dependencies dataquality-service/service/dataset, dataquality-service/service/ruleset
 * @refs api/controllers/validation_controller.go, service/scheduler
 */

package quality

import (
	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
	"dataquality-service/service/ruleset"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Notifier 校验结果通知渠道
type Notifier interface {
	PublishValidationResult(notification *models.QualityNotification) error
	Name() string
}

// EventBroadcaster 事件广播接口，由事件服务实现
type EventBroadcaster interface {
	Broadcast(eventType string, data map[string]interface{}) error
}

// Engine 数据质量引擎
type Engine struct {
	datasets    *dataset.Store
	rules       *ruleset.SessionStore
	validator   *Validator
	notifiers   []Notifier
	broadcaster EventBroadcaster
}

// NewEngine 创建数据质量引擎实例
func NewEngine(datasets *dataset.Store, rules *ruleset.SessionStore, validator *Validator) *Engine {
	return &Engine{
		datasets:  datasets,
		rules:     rules,
		validator: validator,
	}
}

// AddNotifier 注册一个结果通知渠道
func (e *Engine) AddNotifier(n Notifier) {
	e.notifiers = append(e.notifiers, n)
}

// SetBroadcaster 设置事件广播器
func (e *Engine) SetBroadcaster(b EventBroadcaster) {
	e.broadcaster = b
}

// Rules 返回规则会话存储
func (e *Engine) Rules() *ruleset.SessionStore {
	return e.rules
}

// EnsureRegistry 确保数据集存在规则注册表，没有则按列生成默认规则
func (e *Engine) EnsureRegistry(datasetID string, columns []string) *ruleset.Registry {
	if registry, err := e.rules.Get(datasetID); err == nil {
		return registry
	}
	return e.rules.Register(datasetID, columns)
}

// RunCheck 对数据集执行一次完整的质量检查
func (e *Engine) RunCheck(datasetID string) (*models.ValidationReport, error) {
	startTime := time.Now()

	ds, err := e.datasets.Get(datasetID)
	if err != nil {
		validationRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	table, err := e.datasets.LoadTable(ds)
	if err != nil {
		validationRunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("加载数据集 %s 失败: %w", datasetID, err)
	}

	e.EnsureRegistry(datasetID, table.Columns())
	registry, err := e.rules.Snapshot(datasetID)
	if err != nil {
		validationRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	issues := e.validator.Validate(table, registry)
	summary := Summarize(issues, table.RowCount())

	report := &models.ValidationReport{
		RunID:         uuid.New().String(),
		DatasetID:     datasetID,
		TotalRows:     table.RowCount(),
		IssueCount:    len(issues),
		UniqueIssues:  len(summary),
		Summary:       summary,
		CheckTime:     startTime,
		Duration:      time.Since(startTime),
		NoIssuesFound: len(issues) == 0,
	}

	validationRunsTotal.WithLabelValues("completed").Inc()
	validationIssuesTotal.Add(float64(len(issues)))
	validationDuration.Observe(report.Duration.Seconds())

	e.dispatch(ds, report)

	slog.Info("质量检查完成",
		"dataset_id", datasetID,
		"run_id", report.RunID,
		"total_rows", report.TotalRows,
		"issue_count", report.IssueCount,
		"unique_issues", report.UniqueIssues,
		"duration", report.Duration)

	return report, nil
}

// dispatch 分发校验结果：SSE广播与外部通知渠道
// 通知失败只记日志，不影响结果返回
func (e *Engine) dispatch(ds *models.Dataset, report *models.ValidationReport) {
	if e.broadcaster != nil {
		data := map[string]interface{}{
			"run_id":        report.RunID,
			"dataset_id":    report.DatasetID,
			"dataset_name":  ds.Name,
			"issue_count":   report.IssueCount,
			"unique_issues": report.UniqueIssues,
			"check_time":    report.CheckTime,
		}
		if err := e.broadcaster.Broadcast(models.EventTypeValidationCompleted, data); err != nil {
			slog.Warn("校验完成事件广播失败", "run_id", report.RunID, "error", err)
		}
	}

	if len(e.notifiers) == 0 {
		return
	}

	notification := &models.QualityNotification{
		RunID:        report.RunID,
		DatasetID:    report.DatasetID,
		DatasetName:  ds.Name,
		TotalRows:    report.TotalRows,
		IssueCount:   report.IssueCount,
		UniqueIssues: report.UniqueIssues,
		Summary:      report.Summary,
		CheckTime:    report.CheckTime,
	}

	for _, notifier := range e.notifiers {
		go func(n Notifier) {
			if err := n.PublishValidationResult(notification); err != nil {
				slog.Warn("校验结果通知发送失败", "channel", n.Name(), "run_id", report.RunID, "error", err)
			}
		}(notifier)
	}
}
