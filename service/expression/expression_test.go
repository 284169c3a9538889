/*
 * @module service/expression/expression_test
 * @description 受限表达式求值器单元测试
 * @architecture 测试层
 * @documentReference service/expression/expression.go
 * @stateFlow 编译表达式 -> 构造行数据 -> 断言求值结果
 * @rules 覆盖比较、逻辑、算术、空值语义和语法白名单边界
 * @dependencies github.com/stretchr/testify
 * @refs service/dataset/table.go
 */

package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

// rowFromMap 把map转成RowGetter，值为nil表示空单元格
func rowFromMap(cells map[string]*string) RowGetter {
	return func(column string) (*string, bool) {
		cell, ok := cells[column]
		return cell, ok
	}
}

func columnSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func evalOnRow(t *testing.T, expr string, cells map[string]*string) bool {
	t.Helper()

	cols := make([]string, 0, len(cells))
	for name := range cells {
		cols = append(cols, name)
	}
	prog, err := Compile(expr, columnSet(cols...))
	require.NoError(t, err)

	result, err := prog.EvalRow(rowFromMap(cells))
	require.NoError(t, err)
	return result
}

func TestCompile_ValidExpressions(t *testing.T) {
	columns := columnSet("age", "name")

	valid := []string{
		"age > 18",
		"age >= 18 and age <= 60",
		"name == 'alice' or name == 'bob'",
		"not (age < 0)",
		"(age + 1) * 2 > 10",
		"age != 18",
		"`name` == 'alice'",
		"age > 18 && name != ''",
		"age < 10 || age > 60",
		"true",
		"-age < 0",
	}
	for _, expr := range valid {
		_, err := Compile(expr, columns)
		assert.NoError(t, err, "表达式应能编译: %s", expr)
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	columns := columnSet("age")

	invalid := []string{
		"age = 18",    // 单个=不允许
		"age >",       // 不完整
		"(age > 1",    // 缺少右括号
		"age > 1)",    // 多余符号
		"age @ 1",     // 非法字符
		"'unclosed",   // 字符串未闭合
		"`unclosed",   // 列名未闭合
		"",            // 空表达式
		"age > 1 age", // 尾部多余符号
	}
	for _, expr := range invalid {
		_, err := Compile(expr, columns)
		require.Error(t, err, "表达式应编译失败: %s", expr)

		var predErr *PredicateError
		assert.True(t, errors.As(err, &predErr), "错误类型应为PredicateError: %s", expr)
	}
}

func TestCompile_UnknownColumn(t *testing.T) {
	_, err := Compile("salary > 1000", columnSet("age"))
	require.Error(t, err)

	var predErr *PredicateError
	require.True(t, errors.As(err, &predErr))
	assert.Contains(t, predErr.Reason, "salary")
}

func TestEvalRow_NumericComparison(t *testing.T) {
	cells := map[string]*string{"age": strPtr("25")}

	assert.True(t, evalOnRow(t, "age > 18", cells))
	assert.True(t, evalOnRow(t, "age >= 25", cells))
	assert.False(t, evalOnRow(t, "age < 25", cells))
	assert.True(t, evalOnRow(t, "age <= 25", cells))
	assert.True(t, evalOnRow(t, "age == 25", cells))
	assert.False(t, evalOnRow(t, "age != 25", cells))
}

func TestEvalRow_StringComparison(t *testing.T) {
	cells := map[string]*string{"name": strPtr("alice")}

	assert.True(t, evalOnRow(t, "name == 'alice'", cells))
	assert.False(t, evalOnRow(t, "name == 'bob'", cells))
	assert.True(t, evalOnRow(t, `name != "bob"`, cells))
	// 两侧均非数值时按字典序比较
	assert.True(t, evalOnRow(t, "name < 'bob'", cells))
}

func TestEvalRow_LogicalOperators(t *testing.T) {
	cells := map[string]*string{"age": strPtr("30"), "score": strPtr("85")}

	assert.True(t, evalOnRow(t, "age > 18 and score > 60", cells))
	assert.False(t, evalOnRow(t, "age > 18 and score > 90", cells))
	assert.True(t, evalOnRow(t, "age < 18 or score > 60", cells))
	assert.False(t, evalOnRow(t, "age < 18 or score < 60", cells))
	assert.True(t, evalOnRow(t, "not (age < 18)", cells))
	// C风格写法是等价的
	assert.True(t, evalOnRow(t, "age > 18 && score > 60", cells))
	assert.True(t, evalOnRow(t, "age < 18 || score > 60", cells))
	assert.True(t, evalOnRow(t, "!(age < 18)", cells))
}

func TestEvalRow_ArithmeticPrecedence(t *testing.T) {
	cells := map[string]*string{"price": strPtr("10"), "qty": strPtr("3")}

	assert.True(t, evalOnRow(t, "price * qty == 30", cells))
	assert.True(t, evalOnRow(t, "price + qty > 12", cells))
	assert.True(t, evalOnRow(t, "price - qty == 7", cells))
	assert.True(t, evalOnRow(t, "price / qty > 3", cells))
	// 乘除优先于加减
	assert.True(t, evalOnRow(t, "price + qty * 2 == 16", cells))
	assert.True(t, evalOnRow(t, "(price + qty) * 2 == 26", cells))
	assert.True(t, evalOnRow(t, "-price < 0", cells))
}

func TestEvalRow_DivisionByZeroNaN(t *testing.T) {
	cells := map[string]*string{"x": strPtr("5"), "zero": strPtr("0")}

	// NaN参与的比较遵循IEEE语义：恒假（!=除外）
	assert.False(t, evalOnRow(t, "x / zero > 0", cells))
	assert.False(t, evalOnRow(t, "x / zero == x / zero", cells))
	assert.True(t, evalOnRow(t, "x / zero != 1", cells))
}

func TestEvalRow_NullSemantics(t *testing.T) {
	cells := map[string]*string{"age": nil, "name": strPtr("alice")}

	// 空值参与的比较除 != 外恒假
	assert.False(t, evalOnRow(t, "age > 18", cells))
	assert.False(t, evalOnRow(t, "age < 18", cells))
	assert.False(t, evalOnRow(t, "age == 18", cells))
	assert.True(t, evalOnRow(t, "age != 18", cells))

	// 空值自身的真值为假
	assert.False(t, evalOnRow(t, "age", cells))
	assert.True(t, evalOnRow(t, "not age", cells))

	// 空值不影响另一侧的正常分支
	assert.True(t, evalOnRow(t, "age > 18 or name == 'alice'", cells))
}

func TestEvalRow_BoolLiteralsAndTruthiness(t *testing.T) {
	cells := map[string]*string{"flag": strPtr("1")}

	assert.True(t, evalOnRow(t, "true", cells))
	assert.False(t, evalOnRow(t, "false", cells))
	assert.True(t, evalOnRow(t, "flag", cells))
	assert.False(t, evalOnRow(t, "flag - 1", cells))
	assert.True(t, evalOnRow(t, "flag == true", cells))
}

func TestEvalRow_BackquotedColumnName(t *testing.T) {
	cells := map[string]*string{"user name": strPtr("alice")}

	prog, err := Compile("`user name` == 'alice'", columnSet("user name"))
	require.NoError(t, err)

	result, err := prog.EvalRow(rowFromMap(cells))
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvalRow_ShortCircuit(t *testing.T) {
	// and左侧为假时右侧不求值，右侧的类型错误不应暴露
	cells := map[string]*string{"age": strPtr("10"), "name": strPtr("alice")}

	assert.False(t, evalOnRow(t, "age > 18 and name + 1 > 0", cells))
	assert.True(t, evalOnRow(t, "age < 18 or name + 1 > 0", cells))
}

func TestEvalRow_EvalTypeError(t *testing.T) {
	cells := map[string]*string{"name": strPtr("alice")}

	prog, err := Compile("name + 1 > 0", columnSet("name"))
	require.NoError(t, err)

	_, err = prog.EvalRow(rowFromMap(cells))
	require.Error(t, err)

	var predErr *PredicateError
	assert.True(t, errors.As(err, &predErr))
}
