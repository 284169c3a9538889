/*
 * @module service/quality/aggregator_test
 * @description 问题聚合器单元测试
 * @architecture 测试层
 * @documentReference service/quality/aggregator.go
 * @stateFlow 问题列表 -> 聚合 -> 汇总行断言
 * @rules 覆盖分组计数、占比舍入、降序排序和除零边界
 * @dependencies github.com/stretchr/testify
 * @refs service/quality/exporter.go
 */

package quality

import (
	"dataquality-service/service/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_GroupCountAndPercentage(t *testing.T) {
	issues := []models.Issue{
		{Column: "A", Message: "x"},
		{Column: "A", Message: "x"},
		{Column: "B", Message: "y"},
	}

	summary := Summarize(issues, 4)
	require.Len(t, summary, 2)

	assert.Equal(t, models.SummaryRow{
		Column: "A", Message: "x", FailureCount: 2, FailurePercentage: 50,
	}, summary[0])
	assert.Equal(t, models.SummaryRow{
		Column: "B", Message: "y", FailureCount: 1, FailurePercentage: 25,
	}, summary[1])
}

func TestSummarize_SortedByPercentageDesc(t *testing.T) {
	issues := []models.Issue{
		{Column: "A", Message: "rare"},
		{Column: "B", Message: "common"},
		{Column: "B", Message: "common"},
		{Column: "B", Message: "common"},
	}

	summary := Summarize(issues, 10)
	require.Len(t, summary, 2)
	assert.Equal(t, "B", summary[0].Column)
	assert.Equal(t, 3, summary[0].FailureCount)
	assert.Equal(t, "A", summary[1].Column)
}

func TestSummarize_StableOrderOnTie(t *testing.T) {
	issues := []models.Issue{
		{Column: "A", Message: "x"},
		{Column: "B", Message: "y"},
		{Column: "C", Message: "z"},
	}

	summary := Summarize(issues, 3)
	require.Len(t, summary, 3)
	assert.Equal(t, "A", summary[0].Column)
	assert.Equal(t, "B", summary[1].Column)
	assert.Equal(t, "C", summary[2].Column)
}

func TestSummarize_PercentageTwoDecimals(t *testing.T) {
	issues := []models.Issue{
		{Column: "A", Message: "x"},
	}

	// 1/3*100 = 33.333... -> 33.33
	summary := Summarize(issues, 3)
	require.Len(t, summary, 1)
	assert.Equal(t, 33.33, summary[0].FailurePercentage)

	// 2/3*100 = 66.666... -> 66.67
	issues = append(issues, models.Issue{Column: "A", Message: "x"})
	summary = Summarize(issues, 3)
	assert.Equal(t, 66.67, summary[0].FailurePercentage)
}

func TestSummarize_ZeroTotalRows(t *testing.T) {
	issues := []models.Issue{
		{Column: "A", Message: "x"},
	}

	summary := Summarize(issues, 0)
	require.Len(t, summary, 1)
	assert.Zero(t, summary[0].FailurePercentage)
}

func TestSummarize_EmptyIssues(t *testing.T) {
	assert.Nil(t, Summarize(nil, 10))
	assert.Nil(t, Summarize([]models.Issue{}, 10))
}

func TestSummarize_SameColumnDifferentMessages(t *testing.T) {
	issues := []models.Issue{
		{Column: "A", Message: models.IssueNullNotAllowed},
		{Column: "A", Message: models.IssueMaxLength},
		{Column: "A", Message: models.IssueNullNotAllowed},
	}

	summary := Summarize(issues, 10)
	require.Len(t, summary, 2)
	assert.Equal(t, models.IssueNullNotAllowed, summary[0].Message)
	assert.Equal(t, 2, summary[0].FailureCount)
	assert.Equal(t, models.IssueMaxLength, summary[1].Message)
	assert.Equal(t, 1, summary[1].FailureCount)
}
