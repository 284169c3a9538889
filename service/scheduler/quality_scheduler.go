/*
 * @module service/scheduler/quality_scheduler
 * @description 质量检查调度器，按数据集的cron表达式定时触发重新校验
 * @architecture 分层架构 - 服务层
 * @stateFlow 启动调度器 -> 加载数据集调度 -> 定时触发 -> 质量检查
 * @rules cron表达式为6字段（秒 分 时 日 月 周）；多实例下通过分布式锁防重
 * @dependencies github.com/robfig/cron/v3, dataquality-service/service/distributed_lock
 * @refs service/quality/engine.go, service/dataset/store.go
 */

package scheduler

import (
	"context"
	"dataquality-service/service/dataset"
	"dataquality-service/service/distributed_lock"
	"dataquality-service/service/quality"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// QualityScheduler 质量检查调度器
type QualityScheduler struct {
	engine           *quality.Engine
	datasets         *dataset.Store
	cron             *cron.Cron
	entries          map[string]cron.EntryID // datasetID -> cron条目
	mu               sync.Mutex
	ctx              context.Context
	cancel           context.CancelFunc
	schedulerStarted bool
	lockExecutor     *distributed_lock.LockExecutor
}

// NewQualityScheduler 创建质量检查调度器
func NewQualityScheduler(engine *quality.Engine, datasets *dataset.Store) *QualityScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithSeconds())

	return &QualityScheduler{
		engine:   engine,
		datasets: datasets,
		cron:     c,
		entries:  make(map[string]cron.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDistributedLock 设置分布式锁，定时检查通过带锁执行器防重
func (qs *QualityScheduler) SetDistributedLock(lock distributed_lock.DistributedLock) {
	if lock == nil {
		qs.lockExecutor = nil
		return
	}
	qs.lockExecutor = distributed_lock.NewLockExecutor(lock)
	slog.Info("质量检查调度器已启用分布式锁")
}

// StartScheduler 启动调度器
func (qs *QualityScheduler) StartScheduler() error {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if qs.schedulerStarted {
		return fmt.Errorf("调度器已经启动")
	}

	slog.Info("启动质量检查调度器")

	qs.cron.Start()

	// 加载已配置调度的数据集
	if err := qs.loadScheduledDatasets(); err != nil {
		slog.Error("加载数据集调度失败", "error", err)
		return err
	}

	qs.schedulerStarted = true
	slog.Info("质量检查调度器启动完成")
	return nil
}

// StopScheduler 停止调度器
func (qs *QualityScheduler) StopScheduler() {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if !qs.schedulerStarted {
		return
	}

	slog.Info("停止质量检查调度器")

	qs.cancel()

	if qs.cron != nil {
		qs.cron.Stop()
	}

	qs.schedulerStarted = false
	slog.Info("质量检查调度器已停止")
}

// loadScheduledDatasets 加载配置了cron表达式的活跃数据集
func (qs *QualityScheduler) loadScheduledDatasets() error {
	datasets, err := qs.datasets.ListScheduled()
	if err != nil {
		return fmt.Errorf("获取调度数据集失败: %w", err)
	}

	slog.Info("找到配置定时检查的数据集", "count", len(datasets))

	successCount := 0
	failedCount := 0
	for _, ds := range datasets {
		if err := qs.scheduleLocked(ds.ID, ds.CronExpression); err != nil {
			slog.Error("添加数据集调度失败", "dataset_id", ds.ID, "error", err)
			failedCount++
		} else {
			successCount++
		}
	}

	slog.Info("数据集调度加载完成", "total", len(datasets), "success", successCount, "failed", failedCount)
	return nil
}

// Schedule 为数据集设置或更新定时检查
// cron表达式为空时取消已有调度
func (qs *QualityScheduler) Schedule(datasetID, cronExpression string) error {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if entryID, exists := qs.entries[datasetID]; exists {
		qs.cron.Remove(entryID)
		delete(qs.entries, datasetID)
	}

	if cronExpression == "" {
		slog.Info("数据集定时检查已取消", "dataset_id", datasetID)
		return nil
	}

	return qs.scheduleLocked(datasetID, cronExpression)
}

// Unschedule 取消数据集的定时检查
func (qs *QualityScheduler) Unschedule(datasetID string) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if entryID, exists := qs.entries[datasetID]; exists {
		qs.cron.Remove(entryID)
		delete(qs.entries, datasetID)
		slog.Info("数据集定时检查已取消", "dataset_id", datasetID)
	}
}

// scheduleLocked 注册cron条目，调用方需持有锁
func (qs *QualityScheduler) scheduleLocked(datasetID, cronExpression string) error {
	entryID, err := qs.cron.AddFunc(cronExpression, func() {
		qs.executeScheduledCheck(datasetID)
	})
	if err != nil {
		slog.Error("添加Cron调度失败",
			"dataset_id", datasetID,
			"cron_expression", cronExpression,
			"error", err,
			"help", "Cron表达式需要6个字段（秒 分 时 日 月 周），例如：0 */5 * * * *（每5分钟）")
		return fmt.Errorf("添加Cron调度失败: %w", err)
	}

	qs.entries[datasetID] = entryID
	slog.Info("数据集定时检查已注册", "dataset_id", datasetID, "cron_expression", cronExpression)
	return nil
}

// executeScheduledCheck 执行定时质量检查
// 多实例部署时通过带锁执行器防重，长检查由执行器自动续期
func (qs *QualityScheduler) executeScheduledCheck(datasetID string) {
	slog.Info("触发定时质量检查", "dataset_id", datasetID)

	if qs.lockExecutor == nil {
		qs.runCheck(datasetID)
		return
	}

	lockKey := fmt.Sprintf("dataset_check:%s", datasetID)
	err := qs.lockExecutor.ExecuteWithLockAndRefresh(qs.ctx, lockKey, 30*time.Minute, 10*time.Minute, func() error {
		qs.runCheck(datasetID)
		return nil
	})
	if err != nil {
		slog.Error("定时质量检查带锁执行失败", "dataset_id", datasetID, "error", err)
	}
}

// runCheck 触发一次质量检查并记录结果
func (qs *QualityScheduler) runCheck(datasetID string) {
	report, err := qs.engine.RunCheck(datasetID)
	if err != nil {
		slog.Error("定时质量检查失败", "dataset_id", datasetID, "error", err)
		return
	}

	slog.Info("定时质量检查完成",
		"dataset_id", datasetID,
		"run_id", report.RunID,
		"issue_count", report.IssueCount)
}
