/*
 * @module service/dataset/csv_loader
 * @description CSV数据集解析器，将上传内容解析为内存表
 * @architecture 分层架构 - 数据接入层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 编码转换 -> CSV解析 -> 表头校验 -> 内存表构建
 * @rules 空字符串单元格视为空值；各行字段数必须与表头一致
 * @dependencies encoding/csv, dataquality-service/service/utils
 * @refs service/dataset/table.go, api/controllers/dataset_controller.go
 */

package dataset

import (
	"bytes"
	"dataquality-service/service/utils"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// LoadCSV 解析CSV内容为内存表
// encoding 支持 utf-8（默认）和 gbk/gb2312
func LoadCSV(content []byte, encoding string) (*MemoryTable, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	if strings.ToLower(encoding) != "utf-8" {
		converted, err := utils.ConvertEncoding(content, encoding, "utf-8")
		if err != nil {
			return nil, fmt.Errorf("编码转换失败: %w", err)
		}
		content = converted
	}

	// 去掉UTF-8 BOM
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(content))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV内容为空")
	}
	if err != nil {
		return nil, fmt.Errorf("解析CSV表头失败: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			col = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = col
	}

	var rows [][]*string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析CSV第 %d 行失败: %w", len(rows)+2, err)
		}

		row := make([]*string, len(record))
		for i, cell := range record {
			if cell == "" {
				// 空字符串按空值处理
				row[i] = nil
				continue
			}
			v := cell
			row[i] = &v
		}
		rows = append(rows, row)
	}

	return NewMemoryTable(columns, rows)
}
