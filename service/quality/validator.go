/*
 * @module service/quality/validator
 * @description 数据校验器，对数据集逐列应用质量规则并产出问题列表
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 注册表快照 -> 按列并发检查 -> 问题合并
 * @rules 数据问题一律转为Issue，不中断运行；仅非法跨列表达式折叠为单条语法错误
 * @dependencies dataquality-service/service/dataset, dataquality-service/service/expression, github.com/spf13/cast
 * @refs service/quality/engine.go, service/ruleset/registry.go
 */

package quality

import (
	"dataquality-service/service/dataset"
	"dataquality-service/service/expression"
	"dataquality-service/service/models"
	"dataquality-service/service/ruleset"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"unicode/utf8"

	"dataquality-service/service/utils"
)

// Validator 数据校验器
type Validator struct {
	maxWorkers int
	rowBudget  int // 每列逐行检查的行数上限，0表示不限制
}

// ValidatorOption 校验器选项
type ValidatorOption func(*Validator)

// WithMaxWorkers 设置列级并发度
func WithMaxWorkers(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxWorkers = n
		}
	}
}

// WithRowBudget 设置逐行检查的行数预算（超大数据集的提前终止）
func WithRowBudget(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.rowBudget = n
		}
	}
}

// NewValidator 创建数据校验器实例
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{maxWorkers: 4}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate 对表应用注册表中的全部规则，返回问题列表
// 各列相互独立并发检查，结果按注册表列序合并，重复运行产出相同的问题多重集
func (v *Validator) Validate(table dataset.Table, registry *ruleset.Registry) []models.Issue {
	columns := registry.Columns()
	perColumn := make([][]models.Issue, len(columns))

	var wg sync.WaitGroup
	sem := make(chan struct{}, v.maxWorkers)

	for i, column := range columns {
		rule, err := registry.Get(column)
		if err != nil {
			continue
		}

		wg.Add(1)
		go func(slot int, column string, rule models.Rule) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			perColumn[slot] = v.validateColumn(table, column, rule)
		}(i, column, rule)
	}
	wg.Wait()

	var issues []models.Issue
	for _, colIssues := range perColumn {
		issues = append(issues, colIssues...)
	}
	return issues
}

// validateColumn 对单列执行全部检查
func (v *Validator) validateColumn(table dataset.Table, column string, rule models.Rule) []models.Issue {
	rule = rule.Normalize()
	var issues []models.Issue

	// 重复值检查：重复组内所有行都被标记，包括首次出现
	if !rule.AllowDuplicates {
		dupRows, err := table.DuplicateRows(column)
		if err != nil {
			slog.Warn("重复值检查跳过", "column", column, "error", err)
		} else {
			for range dupRows {
				issues = append(issues, models.Issue{Column: column, Message: models.IssueDuplicateValue})
			}
		}
	}

	// 正则按起始位置锚定匹配，允许存在未匹配的尾部
	var re *regexp.Regexp
	if rule.Regex != "" {
		compiled, err := regexp.Compile("^(?:" + rule.Regex + ")")
		if err != nil {
			// 非法正则与非法跨列表达式同等对待：单条语法错误
			issues = append(issues, models.Issue{Column: column, Message: models.IssueRuleSyntax})
		} else {
			re = compiled
		}
	}

	rowCount := table.RowCount()
	if v.rowBudget > 0 && rowCount > v.rowBudget {
		rowCount = v.rowBudget
	}

	for row := 0; row < rowCount; row++ {
		cell, err := table.Value(column, row)
		if err != nil {
			slog.Warn("取值失败，跳过该列剩余检查", "column", column, "row", row, "error", err)
			break
		}

		// 空值检查：空值不允许时记一条问题；空值上其余检查无意义，一律短路
		if cell == nil {
			if !rule.AllowNull {
				issues = append(issues, models.Issue{Column: column, Message: models.IssueNullNotAllowed})
			}
			continue
		}
		value := *cell

		switch rule.Type {
		case models.RuleTypeNumber:
			if _, err := utils.ToFloat(value); err != nil {
				issues = append(issues, models.Issue{Column: column, Message: models.IssueExpectedNumeric})
			}
		case models.RuleTypeDatetime:
			if _, err := utils.ParseTime(value); err != nil {
				issues = append(issues, models.Issue{Column: column, Message: models.IssueInvalidDatetime})
			}
		}

		if re != nil && !re.MatchString(value) {
			issues = append(issues, models.Issue{Column: column, Message: models.IssueRegexFailed})
		}

		// 长度按字符数计
		if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
			issues = append(issues, models.Issue{Column: column, Message: models.IssueMaxLength})
		}
	}

	// 跨列规则：逐行求值，表达式非法时折叠为单条语法错误
	if rule.CustomCondition != "" {
		issues = append(issues, v.checkCustomCondition(table, column, rule.CustomCondition)...)
	}

	return issues
}

func (v *Validator) checkCustomCondition(table dataset.Table, column, condition string) []models.Issue {
	violating, err := table.ViolatingRows(condition)
	if err != nil {
		var predErr *expression.PredicateError
		if !errors.As(err, &predErr) {
			slog.Warn("跨列规则求值失败", "column", column, "condition", condition, "error", err)
		}
		return []models.Issue{{Column: column, Message: models.IssueRuleSyntax}}
	}

	issues := make([]models.Issue, 0, len(violating))
	for range violating {
		issues = append(issues, models.Issue{
			Column:  column,
			Message: fmt.Sprintf("Custom rule failed: %s", condition),
		})
	}
	return issues
}
