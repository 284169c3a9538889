/*
 * @module service/expression/expression
 * @description 受限布尔表达式求值器，支持列引用、字面量、算术/比较/逻辑运算
 * @architecture 分层架构 - 领域工具层
 * @dependencies github.com/spf13/cast
 * @stateFlow 词法分析 -> 递归下降解析 -> 逐行求值
 * @rules 仅允许白名单内的语法构造，不执行任意代码；未知列在编译期报错
 * @refs service/dataset/table.go, service/quality/validator.go
 */

package expression

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// PredicateError 表达式解析或求值错误
type PredicateError struct {
	Expr   string
	Reason string
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("表达式 %q 无法求值: %s", e.Expr, e.Reason)
}

// RowGetter 按列名取一行中的单元格值，单元格可为空（null）
// 第二个返回值表示列是否存在
type RowGetter func(column string) (*string, bool)

// Program 编译后的表达式
type Program struct {
	expr string
	root node
}

// Compile 编译表达式，columns 为合法列名集合
// 引用集合外的列、或出现语法白名单之外的构造，返回 *PredicateError
func Compile(expr string, columns map[string]struct{}) (*Program, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, &PredicateError{Expr: expr, Reason: err.Error()}
	}

	p := &parser{tokens: tokens, columns: columns}
	root, err := p.parseExpr()
	if err != nil {
		return nil, &PredicateError{Expr: expr, Reason: err.Error()}
	}
	if !p.atEnd() {
		return nil, &PredicateError{Expr: expr, Reason: fmt.Sprintf("意外的符号 %q", p.peek().text)}
	}

	return &Program{expr: expr, root: root}, nil
}

// EvalRow 对一行数据求值
// 空单元格按 NaN 语义参与比较：除 != 外的比较均为 false
func (prog *Program) EvalRow(row RowGetter) (bool, error) {
	v, err := prog.root.eval(row)
	if err != nil {
		return false, &PredicateError{Expr: prog.expr, Reason: err.Error()}
	}
	return v.truthy(), nil
}

// ===== 值模型 =====

type valueKind int

const (
	nullVal valueKind = iota
	numberVal
	stringVal
	boolVal
)

type value struct {
	kind valueKind
	num  float64
	str  string
	b    bool
}

func (v value) truthy() bool {
	switch v.kind {
	case boolVal:
		return v.b
	case numberVal:
		return v.num != 0 && !math.IsNaN(v.num)
	case stringVal:
		return v.str != ""
	default:
		return false
	}
}

// asNumber 数值化，空值归一为 NaN
func (v value) asNumber() (float64, error) {
	switch v.kind {
	case numberVal:
		return v.num, nil
	case boolVal:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case nullVal:
		return math.NaN(), nil
	default:
		n, err := cast.ToFloat64E(v.str)
		if err != nil {
			return 0, fmt.Errorf("值 %q 不是数值", v.str)
		}
		return n, nil
	}
}

// numericComparable 两侧是否都能按数值比较
func numericComparable(a, b value) bool {
	for _, v := range []value{a, b} {
		switch v.kind {
		case stringVal:
			if _, err := cast.ToFloat64E(v.str); err != nil {
				return false
			}
		case numberVal, boolVal, nullVal:
		}
	}
	return true
}

// ===== 语法树 =====

type node interface {
	eval(row RowGetter) (value, error)
}

type literalNode struct{ val value }

func (n *literalNode) eval(RowGetter) (value, error) { return n.val, nil }

type columnNode struct{ name string }

func (n *columnNode) eval(row RowGetter) (value, error) {
	cell, ok := row(n.name)
	if !ok {
		return value{}, fmt.Errorf("列 %s 不存在", n.name)
	}
	if cell == nil {
		return value{kind: nullVal}, nil
	}
	return value{kind: stringVal, str: *cell}, nil
}

type unaryNode struct {
	op    string // "not", "-"
	child node
}

func (n *unaryNode) eval(row RowGetter) (value, error) {
	v, err := n.child.eval(row)
	if err != nil {
		return value{}, err
	}
	switch n.op {
	case "not":
		return value{kind: boolVal, b: !v.truthy()}, nil
	case "-":
		num, err := v.asNumber()
		if err != nil {
			return value{}, err
		}
		return value{kind: numberVal, num: -num}, nil
	}
	return value{}, fmt.Errorf("未知一元运算符 %s", n.op)
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(row RowGetter) (value, error) {
	switch n.op {
	case "and":
		lv, err := n.left.eval(row)
		if err != nil {
			return value{}, err
		}
		if !lv.truthy() {
			return value{kind: boolVal, b: false}, nil
		}
		rv, err := n.right.eval(row)
		if err != nil {
			return value{}, err
		}
		return value{kind: boolVal, b: rv.truthy()}, nil
	case "or":
		lv, err := n.left.eval(row)
		if err != nil {
			return value{}, err
		}
		if lv.truthy() {
			return value{kind: boolVal, b: true}, nil
		}
		rv, err := n.right.eval(row)
		if err != nil {
			return value{}, err
		}
		return value{kind: boolVal, b: rv.truthy()}, nil
	}

	lv, err := n.left.eval(row)
	if err != nil {
		return value{}, err
	}
	rv, err := n.right.eval(row)
	if err != nil {
		return value{}, err
	}

	switch n.op {
	case "+", "-", "*", "/":
		return evalArithmetic(n.op, lv, rv)
	case "<", "<=", ">", ">=", "==", "!=":
		return evalComparison(n.op, lv, rv)
	}
	return value{}, fmt.Errorf("未知运算符 %s", n.op)
}

func evalArithmetic(op string, lv, rv value) (value, error) {
	ln, err := lv.asNumber()
	if err != nil {
		return value{}, err
	}
	rn, err := rv.asNumber()
	if err != nil {
		return value{}, err
	}

	var result float64
	switch op {
	case "+":
		result = ln + rn
	case "-":
		result = ln - rn
	case "*":
		result = ln * rn
	case "/":
		if rn == 0 {
			result = math.NaN()
		} else {
			result = ln / rn
		}
	}
	return value{kind: numberVal, num: result}, nil
}

func evalComparison(op string, lv, rv value) (value, error) {
	// 空值按NaN语义：除 != 恒真外，其余比较恒假
	if lv.kind == nullVal || rv.kind == nullVal {
		return value{kind: boolVal, b: op == "!="}, nil
	}

	// 两侧均可数值化时按数值比较，NaN比较遵循IEEE语义
	if numericComparable(lv, rv) {
		ln, _ := lv.asNumber()
		rn, _ := rv.asNumber()
		var b bool
		switch op {
		case "<":
			b = ln < rn
		case "<=":
			b = ln <= rn
		case ">":
			b = ln > rn
		case ">=":
			b = ln >= rn
		case "==":
			b = ln == rn
		case "!=":
			b = ln != rn
		}
		return value{kind: boolVal, b: b}, nil
	}

	// 否则按字符串比较
	ls := lv.asString()
	rs := rv.asString()
	var b bool
	switch op {
	case "<":
		b = ls < rs
	case "<=":
		b = ls <= rs
	case ">":
		b = ls > rs
	case ">=":
		b = ls >= rs
	case "==":
		b = ls == rs
	case "!=":
		b = ls != rs
	}
	return value{kind: boolVal, b: b}, nil
}

func (v value) asString() string {
	switch v.kind {
	case stringVal:
		return v.str
	case numberVal:
		return cast.ToString(v.num)
	case boolVal:
		return cast.ToString(v.b)
	default:
		return ""
	}
}

// ===== 解析器 =====

type parser struct {
	tokens  []token
	pos     int
	columns map[string]struct{}
}

func (p *parser) peek() token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return token{kind: tokenEOF}
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) atEnd() bool {
	return p.peek().kind == tokenEOF
}

// parseExpr := or
func (p *parser) parseExpr() (node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOp && p.peek().text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOp && p.peek().text == "and" {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.peek().kind == tokenOp && p.peek().text == "not" {
		p.next()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "not", child: child}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokenOp {
		switch t.text {
		case "<", "<=", ">", ">=", "==", "!=":
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &binaryNode{op: t.text, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOp && (p.peek().text == "*" || p.peek().text == "/") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokenOp && p.peek().text == "-" {
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "-", child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		n, err := cast.ToFloat64E(t.text)
		if err != nil {
			return nil, fmt.Errorf("非法数值 %q", t.text)
		}
		return &literalNode{val: value{kind: numberVal, num: n}}, nil
	case tokenString:
		return &literalNode{val: value{kind: stringVal, str: t.text}}, nil
	case tokenIdent:
		lower := strings.ToLower(t.text)
		if lower == "true" {
			return &literalNode{val: value{kind: boolVal, b: true}}, nil
		}
		if lower == "false" {
			return &literalNode{val: value{kind: boolVal, b: false}}, nil
		}
		if _, ok := p.columns[t.text]; !ok {
			return nil, fmt.Errorf("引用了不存在的列 %s", t.text)
		}
		return &columnNode{name: t.text}, nil
	case tokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("缺少右括号")
		}
		p.next()
		return inner, nil
	case tokenEOF:
		return nil, fmt.Errorf("表达式不完整")
	}
	return nil, fmt.Errorf("意外的符号 %q", t.text)
}
