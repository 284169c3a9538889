/*
 * @module service/scheduler/quality_scheduler_test
 * @description 质量检查调度器单元测试
 * @architecture 测试层
 * @documentReference service/scheduler/quality_scheduler.go
 * @stateFlow 构建调度器 -> 注册/取消调度 -> 状态断言
 * @rules 覆盖6字段cron校验、启动加载和重复启动保护
 * @dependencies github.com/stretchr/testify, testutil
 * @refs service/quality/engine.go
 */

package scheduler

import (
	"context"
	"dataquality-service/service/dataset"
	"dataquality-service/service/quality"
	"dataquality-service/service/ruleset"
	"dataquality-service/testutil"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLock 记录加解锁调用的内存锁
type recordingLock struct {
	mu         sync.Mutex
	allow      bool
	tryKeys    []string
	unlockKeys []string
}

func (l *recordingLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tryKeys = append(l.tryKeys, key)
	return l.allow, nil
}

func (l *recordingLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlockKeys = append(l.unlockKeys, key)
	return nil
}

func (l *recordingLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (l *recordingLock) IsLocked(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func newTestScheduler(t *testing.T) (*QualityScheduler, *testutil.TestDataFactory, func()) {
	t.Helper()

	tdb := testutil.NewTestDB()
	factory := testutil.NewTestDataFactory(tdb.DB)
	store := dataset.NewStore(tdb.DB)
	engine := quality.NewEngine(store, ruleset.NewSessionStore(), quality.NewValidator())
	qs := NewQualityScheduler(engine, store)

	return qs, factory, func() {
		qs.StopScheduler()
		tdb.Close()
	}
}

func TestScheduler_Schedule_SixFieldExpression(t *testing.T) {
	qs, _, cleanup := newTestScheduler(t)
	defer cleanup()

	require.NoError(t, qs.Schedule("ds-1", "0 0 2 * * *"))
	require.NoError(t, qs.Schedule("ds-2", "*/30 * * * * *"))

	assert.Len(t, qs.entries, 2)
}

func TestScheduler_Schedule_InvalidExpression(t *testing.T) {
	qs, _, cleanup := newTestScheduler(t)
	defer cleanup()

	// 5字段的标准cron在6字段模式下不合法
	assert.Error(t, qs.Schedule("ds-1", "0 2 * * *"))
	assert.Error(t, qs.Schedule("ds-1", "not a cron"))
	assert.Empty(t, qs.entries)
}

func TestScheduler_Schedule_ReplaceExisting(t *testing.T) {
	qs, _, cleanup := newTestScheduler(t)
	defer cleanup()

	require.NoError(t, qs.Schedule("ds-1", "0 0 2 * * *"))
	first := qs.entries["ds-1"]

	require.NoError(t, qs.Schedule("ds-1", "0 0 3 * * *"))
	second := qs.entries["ds-1"]

	assert.NotEqual(t, first, second)
	assert.Len(t, qs.entries, 1)
}

func TestScheduler_Schedule_EmptyExpressionCancels(t *testing.T) {
	qs, _, cleanup := newTestScheduler(t)
	defer cleanup()

	require.NoError(t, qs.Schedule("ds-1", "0 0 2 * * *"))
	require.NoError(t, qs.Schedule("ds-1", ""))
	assert.Empty(t, qs.entries)
}

func TestScheduler_Unschedule(t *testing.T) {
	qs, _, cleanup := newTestScheduler(t)
	defer cleanup()

	require.NoError(t, qs.Schedule("ds-1", "0 0 2 * * *"))
	qs.Unschedule("ds-1")
	assert.Empty(t, qs.entries)

	// 未调度的数据集取消是空操作
	qs.Unschedule("ds-unknown")
}

func TestScheduler_Start_LoadsScheduledDatasets(t *testing.T) {
	qs, factory, cleanup := newTestScheduler(t)
	defer cleanup()

	factory.CreateDataset(testutil.WithCron("0 0 2 * * *"))
	factory.CreateDataset() // 未配置调度

	require.NoError(t, qs.StartScheduler())
	assert.Len(t, qs.entries, 1)
}

func TestScheduler_ScheduledCheckAcquiresLock(t *testing.T) {
	qs, factory, cleanup := newTestScheduler(t)
	defer cleanup()

	lock := &recordingLock{allow: true}
	qs.SetDistributedLock(lock)

	ds := factory.CreateDataset()
	qs.executeScheduledCheck(ds.ID)

	expected := "dataset_check:" + ds.ID
	assert.Equal(t, []string{expected}, lock.tryKeys)
	assert.Equal(t, []string{expected}, lock.unlockKeys, "检查结束后应释放锁")
}

func TestScheduler_ScheduledCheckSkipsWhenLockHeld(t *testing.T) {
	qs, factory, cleanup := newTestScheduler(t)
	defer cleanup()

	lock := &recordingLock{allow: false}
	qs.SetDistributedLock(lock)

	ds := factory.CreateDataset()
	qs.executeScheduledCheck(ds.ID)

	assert.Len(t, lock.tryKeys, 1)
	assert.Empty(t, lock.unlockKeys, "未获得锁时不应执行也不应释放")
}

func TestScheduler_DoubleStartGuard(t *testing.T) {
	qs, _, cleanup := newTestScheduler(t)
	defer cleanup()

	require.NoError(t, qs.StartScheduler())
	assert.Error(t, qs.StartScheduler())

	qs.StopScheduler()
	// 停止后重复停止是空操作
	qs.StopScheduler()
}
