/*
 * @module service/dataset/csv_loader_test
 * @description CSV解析器单元测试
 * @architecture 测试层
 * @documentReference service/dataset/csv_loader.go
 * @stateFlow CSV字节流 -> 解析 -> 内存表断言
 * @rules 覆盖空值、BOM、空表头、GBK编码和异常输入
 * @dependencies github.com/stretchr/testify, golang.org/x/text
 * @refs service/utils/data_converter.go
 */

package dataset

import (
	"dataquality-service/service/utils"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV_BasicParse(t *testing.T) {
	content := []byte("id,name,age\n1,alice,30\n2,bob,25\n")

	table, err := LoadCSV(content, "utf-8")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "age"}, table.Columns())
	assert.Equal(t, 2, table.RowCount())

	v, err := table.Value("name", 1)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "bob", *v)
}

func TestLoadCSV_EmptyEncodingDefaultsUTF8(t *testing.T) {
	table, err := LoadCSV([]byte("id\n1\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, table.RowCount())
}

func TestLoadCSV_EmptyCellsAreNull(t *testing.T) {
	content := []byte("id,name\n1,\n,bob\n")

	table, err := LoadCSV(content, "utf-8")
	require.NoError(t, err)

	v, err := table.Value("name", 0)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = table.Value("id", 1)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestLoadCSV_StripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,alice\n")...)

	table, err := LoadCSV(content, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, table.Columns())
}

func TestLoadCSV_EmptyHeaderPlaceholder(t *testing.T) {
	content := []byte("id,,name\n1,x,alice\n")

	table, err := LoadCSV(content, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "column_2", "name"}, table.Columns())
}

func TestLoadCSV_EmptyContent(t *testing.T) {
	_, err := LoadCSV([]byte(""), "utf-8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV内容为空")
}

func TestLoadCSV_FieldCountMismatch(t *testing.T) {
	_, err := LoadCSV([]byte("id,name\n1,alice,extra\n"), "utf-8")
	assert.Error(t, err)
}

func TestLoadCSV_GBKEncoding(t *testing.T) {
	utf8Content := []byte("编号,名称\n1,数据质量\n")
	gbkContent, err := utils.ConvertEncoding(utf8Content, "utf-8", "gbk")
	require.NoError(t, err)

	table, err := LoadCSV(gbkContent, "gbk")
	require.NoError(t, err)

	assert.Equal(t, []string{"编号", "名称"}, table.Columns())
	v, err := table.Value("名称", 0)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "数据质量", *v)
}

func TestLoadCSV_UnsupportedEncoding(t *testing.T) {
	_, err := LoadCSV([]byte("id\n1\n"), "big5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "编码转换失败")
}
