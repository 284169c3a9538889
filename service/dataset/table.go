/*
 * @module service/dataset/table
 * @description 内存表结构，提供按列取值、重复检测和行级谓词过滤
 * @architecture 分层架构 - 领域模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow CSV解析 -> 内存表构建 -> 质量检查读取
 * @rules 单元格为可空字符串；空值参与重复分组（与空值互为重复）
 * @dependencies dataquality-service/service/expression
 * @refs service/quality/validator.go
 */

package dataset

import (
	"dataquality-service/service/expression"
	"fmt"
)

// Table 质量检查所需的最小表契约
type Table interface {
	// Columns 按原始顺序返回列名
	Columns() []string
	// RowCount 返回数据行数
	RowCount() int
	// Value 返回某列某行的单元格，空值返回nil
	Value(column string, rowIndex int) (*string, error)
	// DuplicateRows 返回该列所有参与重复组的行号（含首次出现）
	DuplicateRows(column string) ([]int, error)
	// ViolatingRows 对每行求值布尔表达式，返回不满足的行号
	// 表达式非法或引用未知列时返回 *expression.PredicateError
	ViolatingRows(expr string) ([]int, error)
}

// MemoryTable 内存表实现
type MemoryTable struct {
	columns  []string
	colIndex map[string]int
	rows     [][]*string
}

// NewMemoryTable 以列名和行数据构建内存表
func NewMemoryTable(columns []string, rows [][]*string) (*MemoryTable, error) {
	colIndex := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, exists := colIndex[col]; exists {
			return nil, fmt.Errorf("列名重复: %s", col)
		}
		colIndex[col] = i
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("第 %d 行字段数 %d 与列数 %d 不一致", i+1, len(row), len(columns))
		}
	}

	return &MemoryTable{
		columns:  columns,
		colIndex: colIndex,
		rows:     rows,
	}, nil
}

// Columns 返回列名
func (t *MemoryTable) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// RowCount 返回行数
func (t *MemoryTable) RowCount() int {
	return len(t.rows)
}

// Value 返回单元格值
func (t *MemoryTable) Value(column string, rowIndex int) (*string, error) {
	idx, exists := t.colIndex[column]
	if !exists {
		return nil, fmt.Errorf("列 %s 不存在", column)
	}
	if rowIndex < 0 || rowIndex >= len(t.rows) {
		return nil, fmt.Errorf("行号 %d 越界", rowIndex)
	}
	return t.rows[rowIndex][idx], nil
}

// DuplicateRows 返回该列重复值所在的全部行号
// 采用keep=none语义：重复组内的每一行都被标记，包括首次出现
func (t *MemoryTable) DuplicateRows(column string) ([]int, error) {
	idx, exists := t.colIndex[column]
	if !exists {
		return nil, fmt.Errorf("列 %s 不存在", column)
	}

	// 空值单独成组，空值之间互为重复
	const nullKey = "\x00<null>"
	groups := make(map[string][]int)
	for rowIdx, row := range t.rows {
		key := nullKey
		if cell := row[idx]; cell != nil {
			key = *cell
		}
		groups[key] = append(groups[key], rowIdx)
	}

	var flagged []int
	for _, rowIdx := range t.orderedRowIndexes() {
		key := nullKey
		if cell := t.rows[rowIdx][idx]; cell != nil {
			key = *cell
		}
		if len(groups[key]) > 1 {
			flagged = append(flagged, rowIdx)
		}
	}
	return flagged, nil
}

func (t *MemoryTable) orderedRowIndexes() []int {
	idxs := make([]int, len(t.rows))
	for i := range idxs {
		idxs[i] = i
	}
	return idxs
}

// ViolatingRows 返回不满足表达式的行号
func (t *MemoryTable) ViolatingRows(expr string) ([]int, error) {
	columns := make(map[string]struct{}, len(t.columns))
	for _, col := range t.columns {
		columns[col] = struct{}{}
	}

	prog, err := expression.Compile(expr, columns)
	if err != nil {
		return nil, err
	}

	var violating []int
	for rowIdx, row := range t.rows {
		getter := func(column string) (*string, bool) {
			idx, exists := t.colIndex[column]
			if !exists {
				return nil, false
			}
			return row[idx], true
		}
		ok, err := prog.EvalRow(getter)
		if err != nil {
			return nil, err
		}
		if !ok {
			violating = append(violating, rowIdx)
		}
	}
	return violating, nil
}
