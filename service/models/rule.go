/*
 * @module service/models/rule
 * @description 数据质量规则模型，定义单列约束的不可变快照
 * @architecture 数据模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 默认规则生成 -> 规则编辑（整体替换） -> 校验运行快照
 * @rules 规则仅存于会话内存，不做持久化和版本管理
 * @dependencies 无
 * @refs service/ruleset, service/quality
 */

package models

// RuleType 列的期望语义类型
type RuleType string

const (
	RuleTypeString   RuleType = "string"
	RuleTypeNumber   RuleType = "number"
	RuleTypeDatetime RuleType = "datetime"
)

// IsValid 判断规则类型是否合法
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeString, RuleTypeNumber, RuleTypeDatetime:
		return true
	}
	return false
}

// Rule 单列质量规则
// MaxLength 为 0 表示不限制长度（不会被当作零长度约束）
type Rule struct {
	Type            RuleType `json:"type"`
	AllowNull       bool     `json:"allow_null"`
	AllowDuplicates bool     `json:"allow_duplicates"`
	Regex           string   `json:"regex,omitempty"`
	MaxLength       int      `json:"max_length,omitempty"`
	CustomCondition string   `json:"custom_condition,omitempty"` // 跨列布尔表达式
}

// DefaultRule 新数据集每列的默认规则
func DefaultRule() Rule {
	return Rule{
		Type:            RuleTypeString,
		AllowNull:       false,
		AllowDuplicates: true,
	}
}

// Normalize 规整规则快照
// 负的或为0的长度限制统一归一为"无限制"
func (r Rule) Normalize() Rule {
	if r.MaxLength <= 0 {
		r.MaxLength = 0
	}
	return r
}
