/*
 * @module service/quality/exporter
 * @description 汇总导出器，将校验汇总输出为带表头的CSV文本
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 汇总行 -> CSV编码 -> 字节流输出
 * @rules 表头固定为 column,message,failure_count,failure_percentage；占比两位小数
 * @dependencies encoding/csv, dataquality-service/service/models
 * @refs api/controllers/validation_controller.go
 */

package quality

import (
	"bytes"
	"dataquality-service/service/models"
	"encoding/csv"
	"fmt"
	"strconv"
)

// ExportFileName 汇总下载的默认文件名
const ExportFileName = "dq_issue_summary.csv"

// ExportSummaryCSV 将汇总导出为CSV
func ExportSummaryCSV(summary []models.SummaryRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"column", "message", "failure_count", "failure_percentage"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("写入CSV表头失败: %w", err)
	}

	for _, row := range summary {
		record := []string{
			row.Column,
			row.Message,
			strconv.Itoa(row.FailureCount),
			strconv.FormatFloat(row.FailurePercentage, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("写入CSV记录失败: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
