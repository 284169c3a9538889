/*
 * @module service/utils/data_converter
 * @description 数据转换工具模块，负责单元格类型探测、数值/时间解析和编码转换
 * @architecture 工具函数模式，提供静态转换方法集合
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 转换失败返回错误而不是静默吞掉
 *   - 时间解析采用宽松的多格式尝试
 *   - 编码转换支持GBK与UTF-8互转
 * @dependencies github.com/spf13/cast, golang.org/x/text
 * @refs service/dataset/csv_loader.go, service/quality/validator.go
 */

package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// 宽松时间解析使用的格式集合
var permissiveTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04",
	"20060102",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC822,
}

// ToFloat 将单元格值解析为浮点数
// cast 对空字符串返回零值而不报错，这里先行拒绝空白输入
func ToFloat(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("空字符串无法解析为数值")
	}
	return cast.ToFloat64E(trimmed)
}

// ParseTime 宽松解析时间字符串，依次尝试常见格式
func ParseTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("空字符串无法解析为时间")
	}

	for _, layout := range permissiveTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}

	// cast 的时间解析作为兜底（支持unix时间戳等）
	if t, err := cast.ToTimeE(trimmed); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("值 %q 无法解析为时间", value)
}

// DetectValueType 探测单元格值的语义类型
func DetectValueType(value string) string {
	if strings.TrimSpace(value) == "" {
		return "null"
	}
	if _, err := ToFloat(value); err == nil {
		return "number"
	}
	if _, err := ParseTime(value); err == nil {
		return "datetime"
	}
	return "string"
}

// ConvertEncoding 编码转换
func ConvertEncoding(data []byte, fromEncoding, toEncoding string) ([]byte, error) {
	from := strings.ToLower(fromEncoding)
	to := strings.ToLower(toEncoding)

	if from == to {
		return data, nil
	}

	switch {
	// GBK/GB2312 到 UTF-8
	case (from == "gbk" || from == "gb2312") && to == "utf-8":
		decoder := simplifiedchinese.GBK.NewDecoder()
		result, _, err := transform.Bytes(decoder, data)
		return result, err

	// UTF-8 到 GBK/GB2312
	case from == "utf-8" && (to == "gbk" || to == "gb2312"):
		encoder := simplifiedchinese.GBK.NewEncoder()
		result, _, err := transform.Bytes(encoder, data)
		return result, err

	default:
		return nil, fmt.Errorf("不支持的编码转换: %s -> %s", fromEncoding, toEncoding)
	}
}
