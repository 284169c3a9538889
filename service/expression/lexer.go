/*
 * @module service/expression/lexer
 * @description 表达式词法分析器，产出受限语法的符号流
 * @architecture 分层架构 - 领域工具层
 * @stateFlow 字符扫描 -> 符号分类 -> 符号流输出
 * @rules 仅识别白名单符号，其他字符一律报错
 * @dependencies strings, unicode
 * @refs service/expression/expression.go
 */

package expression

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent
	tokenOp
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)
	i := 0

	for i < len(runes) {
		c := runes[i]

		switch {
		case unicode.IsSpace(c):
			i++

		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++

		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++

		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			var sb strings.Builder
			for j < len(runes) && runes[j] != quote {
				sb.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("字符串未闭合")
			}
			tokens = append(tokens, token{kind: tokenString, text: sb.String()})
			i = j + 1

		case c == '`':
			// 反引号包裹的列名，允许包含空格等特殊字符
			j := i + 1
			var sb strings.Builder
			for j < len(runes) && runes[j] != '`' {
				sb.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("列名未闭合")
			}
			tokens = append(tokens, token{kind: tokenIdent, text: sb.String()})
			i = j + 1

		case unicode.IsDigit(c) || (c == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(runes[i:j])})
			i = j

		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			switch strings.ToLower(word) {
			case "and", "or", "not":
				tokens = append(tokens, token{kind: tokenOp, text: strings.ToLower(word)})
			default:
				tokens = append(tokens, token{kind: tokenIdent, text: word})
			}
			i = j

		case c == '&' && i+1 < len(runes) && runes[i+1] == '&':
			tokens = append(tokens, token{kind: tokenOp, text: "and"})
			i += 2

		case c == '|' && i+1 < len(runes) && runes[i+1] == '|':
			tokens = append(tokens, token{kind: tokenOp, text: "or"})
			i += 2

		case c == '<' || c == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenOp, text: string(c) + "="})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenOp, text: string(c)})
				i++
			}

		case c == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenOp, text: "=="})
				i += 2
			} else {
				return nil, fmt.Errorf("不支持单个 =，请使用 ==")
			}

		case c == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenOp, text: "!="})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenOp, text: "not"})
				i++
			}

		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{kind: tokenOp, text: string(c)})
			i++

		default:
			return nil, fmt.Errorf("非法字符 %q", string(c))
		}
	}

	return tokens, nil
}
