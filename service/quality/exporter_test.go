/*
 * @module service/quality/exporter_test
 * @description 汇总CSV导出单元测试
 * @architecture 测试层
 * @documentReference service/quality/exporter.go
 * @stateFlow 汇总行 -> CSV导出 -> 文本断言
 * @rules 覆盖表头、两位小数格式和字段转义
 * @dependencies github.com/stretchr/testify
 * @refs api/controllers/validation_controller.go
 */

package quality

import (
	"dataquality-service/service/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportSummaryCSV(t *testing.T) {
	summary := []models.SummaryRow{
		{Column: "email", Message: "Duplicate value found", FailureCount: 3, FailurePercentage: 33.33},
		{Column: "age", Message: "Expected numeric value", FailureCount: 1, FailurePercentage: 11.11},
	}

	data, err := ExportSummaryCSV(summary)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "column,message,failure_count,failure_percentage", lines[0])
	assert.Equal(t, "email,Duplicate value found,3,33.33", lines[1])
	assert.Equal(t, "age,Expected numeric value,1,11.11", lines[2])
}

func TestExportSummaryCSV_PercentagePaddedToTwoDecimals(t *testing.T) {
	summary := []models.SummaryRow{
		{Column: "id", Message: "Null value not allowed", FailureCount: 2, FailurePercentage: 50},
	}

	data, err := ExportSummaryCSV(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id,Null value not allowed,2,50.00")
}

func TestExportSummaryCSV_EmptySummaryHeaderOnly(t *testing.T) {
	data, err := ExportSummaryCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "column,message,failure_count,failure_percentage\n", string(data))
}

func TestExportSummaryCSV_CommaFieldQuoted(t *testing.T) {
	summary := []models.SummaryRow{
		{Column: "age", Message: "Custom rule failed: age >= 18, score >= 60", FailureCount: 1, FailurePercentage: 25},
	}

	data, err := ExportSummaryCSV(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Custom rule failed: age >= 18, score >= 60"`)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "dq_issue_summary.csv", ExportFileName)
}
