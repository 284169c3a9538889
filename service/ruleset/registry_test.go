/*
 * @module service/ruleset/registry_test
 * @description 规则注册表与会话存储单元测试
 * @architecture 测试层
 * @documentReference service/ruleset/registry.go
 * @stateFlow 创建注册表 -> 规则编辑 -> 快照隔离断言
 * @rules 覆盖默认规则、未知列错误、快照一致性
 * @dependencies github.com/stretchr/testify
 * @refs service/ruleset/session_store.go
 */

package ruleset

import (
	"dataquality-service/service/models"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DefaultRules(t *testing.T) {
	registry := NewRegistry([]string{"id", "name", "age"})

	assert.Equal(t, []string{"id", "name", "age"}, registry.Columns())

	for _, col := range registry.Columns() {
		rule, err := registry.Get(col)
		require.NoError(t, err)
		assert.Equal(t, models.RuleTypeString, rule.Type)
		assert.False(t, rule.AllowNull)
		assert.True(t, rule.AllowDuplicates)
		assert.Empty(t, rule.Regex)
		assert.Zero(t, rule.MaxLength)
		assert.Empty(t, rule.CustomCondition)
	}
}

func TestNewRegistry_DuplicateColumnsDeduped(t *testing.T) {
	registry := NewRegistry([]string{"id", "name", "id"})
	assert.Equal(t, []string{"id", "name"}, registry.Columns())
}

func TestRegistry_SetGet(t *testing.T) {
	registry := NewRegistry([]string{"id", "email"})

	rule := models.Rule{
		Type:            models.RuleTypeString,
		AllowNull:       true,
		AllowDuplicates: false,
		Regex:           `\w+@\w+`,
		MaxLength:       64,
	}
	require.NoError(t, registry.Set("email", rule))

	got, err := registry.Get("email")
	require.NoError(t, err)
	assert.Equal(t, rule, got)

	// 其他列不受影响
	other, err := registry.Get("id")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRule(), other)
}

func TestRegistry_Set_NegativeMaxLengthNormalized(t *testing.T) {
	registry := NewRegistry([]string{"name"})

	require.NoError(t, registry.Set("name", models.Rule{
		Type:            models.RuleTypeString,
		AllowDuplicates: true,
		MaxLength:       -5,
	}))

	got, err := registry.Get("name")
	require.NoError(t, err)
	assert.Zero(t, got.MaxLength)
}

func TestRegistry_UnknownColumn(t *testing.T) {
	registry := NewRegistry([]string{"id"})

	_, err := registry.Get("missing")
	require.Error(t, err)

	var unknownErr *ErrUnknownColumn
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "missing", unknownErr.Column)

	err = registry.Set("missing", models.DefaultRule())
	assert.True(t, errors.As(err, &unknownErr))
}

func TestRegistry_Snapshot_Isolated(t *testing.T) {
	registry := NewRegistry([]string{"id", "name"})
	snapshot := registry.Snapshot()

	// 快照后修改原注册表，不影响快照
	require.NoError(t, registry.Set("name", models.Rule{
		Type:            models.RuleTypeNumber,
		AllowDuplicates: true,
	}))

	snapRule, err := snapshot.Get("name")
	require.NoError(t, err)
	assert.Equal(t, models.RuleTypeString, snapRule.Type)

	liveRule, err := registry.Get("name")
	require.NoError(t, err)
	assert.Equal(t, models.RuleTypeNumber, liveRule.Type)
}

func TestRegistry_RulesReturnsCopy(t *testing.T) {
	registry := NewRegistry([]string{"id", "name"})

	rules := registry.Rules()
	rules["name"] = models.Rule{Type: models.RuleTypeNumber, AllowDuplicates: true}
	delete(rules, "id")

	// 调用方修改副本不影响注册表
	got, err := registry.Get("name")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRule(), got)

	_, err = registry.Get("id")
	assert.NoError(t, err)
}

func TestSessionStore_ConcurrentReadWrite(t *testing.T) {
	store := NewSessionStore()
	registry := store.Register("ds-1", []string{"id", "name", "age"})

	const iterations = 500
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			for col, rule := range registry.Rules() {
				_ = col
				_ = rule
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			rule := models.Rule{Type: models.RuleTypeNumber, AllowDuplicates: i%2 == 0}
			assert.NoError(t, store.UpdateRule("ds-1", "age", rule))
		}
	}()

	wg.Wait()

	got, err := registry.Get("age")
	require.NoError(t, err)
	assert.Equal(t, models.RuleTypeNumber, got.Type)
}

func TestSessionStore_RegisterAndUpdate(t *testing.T) {
	store := NewSessionStore()

	_, err := store.Get("ds-1")
	assert.Error(t, err, "未注册的数据集应报错")

	store.Register("ds-1", []string{"id", "name"})

	registry, err := store.Get("ds-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, registry.Columns())

	rule := models.Rule{Type: models.RuleTypeNumber, AllowDuplicates: false}
	require.NoError(t, store.UpdateRule("ds-1", "id", rule))

	got, err := registry.Get("id")
	require.NoError(t, err)
	assert.Equal(t, models.RuleTypeNumber, got.Type)
	assert.False(t, got.AllowDuplicates)
}

func TestSessionStore_UpdateRule_Errors(t *testing.T) {
	store := NewSessionStore()
	store.Register("ds-1", []string{"id"})

	assert.Error(t, store.UpdateRule("ds-unknown", "id", models.DefaultRule()))

	err := store.UpdateRule("ds-1", "missing", models.DefaultRule())
	var unknownErr *ErrUnknownColumn
	assert.True(t, errors.As(err, &unknownErr))
}

func TestSessionStore_Remove(t *testing.T) {
	store := NewSessionStore()
	store.Register("ds-1", []string{"id"})

	store.Remove("ds-1")

	_, err := store.Get("ds-1")
	assert.Error(t, err)

	// 重复移除不报错
	store.Remove("ds-1")
}

func TestSessionStore_ReRegisterReplaces(t *testing.T) {
	store := NewSessionStore()
	store.Register("ds-1", []string{"id"})
	require.NoError(t, store.UpdateRule("ds-1", "id", models.Rule{
		Type:            models.RuleTypeDatetime,
		AllowDuplicates: true,
	}))

	// 再次注册回到默认规则
	store.Register("ds-1", []string{"id", "name"})

	registry, err := store.Get("ds-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, registry.Columns())

	rule, err := registry.Get("id")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRule(), rule)
}
