/*
 * @module service/quality/aggregator
 * @description 问题聚合器，按(列,问题)分组计数并计算失败占比
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 问题列表 -> 分组计数 -> 占比计算 -> 稳定排序
 * @rules 占比保留两位小数；总行数为0时占比定义为0，避免除零
 * @dependencies dataquality-service/service/models, sort
 * @refs service/quality/engine.go
 */

package quality

import (
	"dataquality-service/service/models"
	"math"
	"sort"
)

// Summarize 将问题列表聚合为汇总
// 按(列,问题)分组计数，failurePercentage = round(count/totalRows*100, 2)
// 结果按占比降序稳定排序，占比相同时保持首次出现的分组顺序
func Summarize(issues []models.Issue, totalRows int) []models.SummaryRow {
	if len(issues) == 0 {
		return nil
	}

	type groupKey struct {
		column  string
		message string
	}

	index := make(map[groupKey]int)
	var summary []models.SummaryRow

	for _, issue := range issues {
		key := groupKey{column: issue.Column, message: issue.Message}
		if i, exists := index[key]; exists {
			summary[i].FailureCount++
			continue
		}
		index[key] = len(summary)
		summary = append(summary, models.SummaryRow{
			Column:       issue.Column,
			Message:      issue.Message,
			FailureCount: 1,
		})
	}

	for i := range summary {
		summary[i].FailurePercentage = failurePercentage(summary[i].FailureCount, totalRows)
	}

	sort.SliceStable(summary, func(i, j int) bool {
		return summary[i].FailurePercentage > summary[j].FailurePercentage
	})

	return summary
}

// failurePercentage 计算失败占比
// 总行数为0时占比无定义，这里按0处理
func failurePercentage(count, totalRows int) float64 {
	if totalRows <= 0 {
		return 0
	}
	pct := float64(count) / float64(totalRows) * 100
	return math.Round(pct*100) / 100
}
