/*
 * @module service/models/issue
 * @description 质量问题与汇总模型，校验运行的输出结构
 * @architecture 数据模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 校验执行 -> 问题收集 -> 按(列,问题)聚合 -> 汇总输出
 * @rules 问题列表每次运行重新生成，不做持久化
 * @dependencies time
 * @refs service/quality
 */

package models

import "time"

// 固定的问题消息
const (
	IssueDuplicateValue  = "Duplicate value found"
	IssueNullNotAllowed  = "Null value not allowed"
	IssueExpectedNumeric = "Expected numeric value"
	IssueInvalidDatetime = "Invalid datetime format"
	IssueRegexFailed     = "Regex validation failed"
	IssueMaxLength       = "Max length exceeded"
	IssueRuleSyntax      = "Rule syntax error"
)

// Issue 单条质量问题
type Issue struct {
	Column  string `json:"column"`
	Message string `json:"message"`
}

// SummaryRow 聚合后的汇总行
type SummaryRow struct {
	Column            string  `json:"column"`
	Message           string  `json:"message"`
	FailureCount      int     `json:"failure_count"`
	FailurePercentage float64 `json:"failure_percentage"` // count/totalRows*100，保留2位小数
}

// ValidationReport 一次校验运行的完整结果
type ValidationReport struct {
	RunID          string        `json:"run_id"`
	DatasetID      string        `json:"dataset_id"`
	TotalRows      int           `json:"total_rows"`
	IssueCount     int           `json:"issue_count"`
	UniqueIssues   int           `json:"unique_issues"` // 汇总行数量
	Summary        []SummaryRow  `json:"summary"`
	CheckTime      time.Time     `json:"check_time"`
	Duration       time.Duration `json:"duration"`
	NoIssuesFound  bool          `json:"no_issues_found"`
}
