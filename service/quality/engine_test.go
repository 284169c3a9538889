/*
 * @module service/quality/engine_test
 * @description 数据质量引擎集成测试
 * @architecture 测试层
 * @documentReference service/quality/engine.go
 * @stateFlow 测试库建数据集 -> 执行检查 -> 报告与分发断言
 * @rules 使用内存SQLite验证完整的检查编排流程
 * @dependencies github.com/stretchr/testify, testutil
 * @refs service/dataset/store.go, service/ruleset/session_store.go
 */

package quality

import (
	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
	"dataquality-service/service/ruleset"
	"dataquality-service/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *testutil.TestDataFactory, func()) {
	t.Helper()

	tdb := testutil.NewTestDB()
	factory := testutil.NewTestDataFactory(tdb.DB)
	store := dataset.NewStore(tdb.DB)
	engine := NewEngine(store, ruleset.NewSessionStore(), NewValidator())

	return engine, factory, tdb.Close
}

func TestEngine_RunCheck_FullReport(t *testing.T) {
	engine, factory, cleanup := newTestEngine(t)
	defer cleanup()

	ds := factory.CreateDataset(testutil.WithCSV("id,email\n1,a@x.com\n2,a@x.com\n3,\n"))

	engine.EnsureRegistry(ds.ID, []string{"id", "email"})
	require.NoError(t, engine.Rules().UpdateRule(ds.ID, "email", models.Rule{
		Type:            models.RuleTypeString,
		AllowDuplicates: false,
	}))

	report, err := engine.RunCheck(ds.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, ds.ID, report.DatasetID)
	assert.Equal(t, 3, report.TotalRows)
	// 重复2条 + 空值1条
	assert.Equal(t, 3, report.IssueCount)
	assert.Equal(t, 2, report.UniqueIssues)
	assert.False(t, report.NoIssuesFound)
	require.Len(t, report.Summary, 2)
	assert.Equal(t, models.IssueDuplicateValue, report.Summary[0].Message)
	assert.Equal(t, 2, report.Summary[0].FailureCount)
}

func TestEngine_RunCheck_NoIssues(t *testing.T) {
	engine, factory, cleanup := newTestEngine(t)
	defer cleanup()

	ds := factory.CreateDataset(testutil.WithCSV("id,name\n1,alice\n2,bob\n"))

	report, err := engine.RunCheck(ds.ID)
	require.NoError(t, err)

	assert.True(t, report.NoIssuesFound)
	assert.Zero(t, report.IssueCount)
	assert.Zero(t, report.UniqueIssues)
	assert.Nil(t, report.Summary)
}

func TestEngine_RunCheck_DatasetNotFound(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	_, err := engine.RunCheck("no-such-dataset")
	assert.Error(t, err)
}

func TestEngine_RunCheck_RecomputePerRun(t *testing.T) {
	engine, factory, cleanup := newTestEngine(t)
	defer cleanup()

	ds := factory.CreateDataset(testutil.WithCSV("id,name\n1,\n2,bob\n"))

	first, err := engine.RunCheck(ds.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.IssueCount)

	// 规则放宽后重跑，结果跟随最新规则
	require.NoError(t, engine.Rules().UpdateRule(ds.ID, "name", models.Rule{
		Type:            models.RuleTypeString,
		AllowNull:       true,
		AllowDuplicates: true,
	}))

	second, err := engine.RunCheck(ds.ID)
	require.NoError(t, err)
	assert.True(t, second.NoIssuesFound)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEngine_EnsureRegistry_KeepsExistingRules(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	engine.EnsureRegistry("ds-1", []string{"id", "name"})
	require.NoError(t, engine.Rules().UpdateRule("ds-1", "name", models.Rule{
		Type:            models.RuleTypeNumber,
		AllowDuplicates: true,
	}))

	// 再次Ensure不应重置规则
	registry := engine.EnsureRegistry("ds-1", []string{"id", "name"})
	rule, err := registry.Get("name")
	require.NoError(t, err)
	assert.Equal(t, models.RuleTypeNumber, rule.Type)
}

func TestEngine_RunCheck_BroadcastsCompletionEvent(t *testing.T) {
	engine, factory, cleanup := newTestEngine(t)
	defer cleanup()

	broadcaster := new(testutil.MockBroadcaster)
	broadcaster.On("Broadcast", models.EventTypeValidationCompleted, mock.Anything).Return(nil)
	engine.SetBroadcaster(broadcaster)

	ds := factory.CreateDataset(testutil.WithCSV("id,name\n1,alice\n"))

	report, err := engine.RunCheck(ds.ID)
	require.NoError(t, err)

	broadcaster.AssertCalled(t, "Broadcast", models.EventTypeValidationCompleted, mock.MatchedBy(func(data map[string]interface{}) bool {
		return data["run_id"] == report.RunID && data["dataset_id"] == ds.ID
	}))
}

func TestEngine_RunCheck_NotifiersReceiveResult(t *testing.T) {
	engine, factory, cleanup := newTestEngine(t)
	defer cleanup()

	published := make(chan *models.QualityNotification, 1)
	notifier := new(testutil.MockNotifier)
	notifier.On("PublishValidationResult", mock.Anything).Run(func(args mock.Arguments) {
		published <- args.Get(0).(*models.QualityNotification)
	}).Return(nil)
	engine.AddNotifier(notifier)

	ds := factory.CreateDataset(testutil.WithCSV("id,name\n1,\n"))

	report, err := engine.RunCheck(ds.ID)
	require.NoError(t, err)

	// 通知异步分发
	select {
	case notification := <-published:
		assert.Equal(t, report.RunID, notification.RunID)
		assert.Equal(t, ds.Name, notification.DatasetName)
		assert.Equal(t, 1, notification.IssueCount)
	case <-time.After(2 * time.Second):
		t.Fatal("通知渠道未在预期时间内收到校验结果")
	}
}
