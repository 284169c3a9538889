/*
 * @module service/ruleset/registry
 * @description 规则注册表，维护数据集每一列的质量规则
 * @architecture 分层架构 - 领域模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 数据集加载 -> 默认规则生成 -> 规则编辑（整列替换） -> 校验快照
 * @rules 列集合固定不变，未知列操作立即返回错误；规则整体替换，保证快照内部一致
 * @dependencies dataquality-service/service/models
 * @refs service/quality/validator.go
 */

package ruleset

import (
	"dataquality-service/service/models"
	"fmt"
	"sync"
)

// ErrUnknownColumn 未知列错误
type ErrUnknownColumn struct {
	Column string
}

func (e *ErrUnknownColumn) Error() string {
	return fmt.Sprintf("未知列: %s", e.Column)
}

// Registry 规则注册表，列名 -> 规则
// 本层不做跨规则校验：引用不存在列的跨列表达式在这里是合法的，只在校验执行时失败
// 规则读写由内部读写锁保护，规则编辑与注册表查询可以并发进行；列集合创建后不再变化
type Registry struct {
	mu      sync.RWMutex
	columns []string
	rules   map[string]models.Rule
}

// NewRegistry 按列顺序创建注册表，每列一条默认规则
func NewRegistry(columns []string) *Registry {
	rules := make(map[string]models.Rule, len(columns))
	cols := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, exists := rules[col]; exists {
			continue
		}
		cols = append(cols, col)
		rules[col] = models.DefaultRule()
	}
	return &Registry{columns: cols, rules: rules}
}

// Columns 返回注册表的列名（保持数据集列顺序）
func (r *Registry) Columns() []string {
	cols := make([]string, len(r.columns))
	copy(cols, r.columns)
	return cols
}

// Get 获取某列的规则
func (r *Registry) Get(column string) (models.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[column]
	if !exists {
		return models.Rule{}, &ErrUnknownColumn{Column: column}
	}
	return rule, nil
}

// Set 整体替换某列的规则
func (r *Registry) Set(column string, rule models.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[column]; !exists {
		return &ErrUnknownColumn{Column: column}
	}
	r.rules[column] = rule.Normalize()
	return nil
}

// Snapshot 复制一份注册表，供校验运行读取一致视图
func (r *Registry) Snapshot() *Registry {
	cols := make([]string, len(r.columns))
	copy(cols, r.columns)
	return &Registry{columns: cols, rules: r.Rules()}
}

// Rules 返回列名到规则的副本，调用方持有的map与注册表互不影响
func (r *Registry) Rules() map[string]models.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make(map[string]models.Rule, len(r.rules))
	for col, rule := range r.rules {
		rules[col] = rule
	}
	return rules
}
