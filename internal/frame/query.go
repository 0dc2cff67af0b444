// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// CompOp is a comparison operator in a query expression.
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// Expression represents a single comparison
type Expression struct {
	ColumnName string
	Operator   CompOp
	Value      string
}

// Query represents a complete query with multiple expressions
type Query struct {
	Expressions []Expression
	LogicOps    []LogicOp // Operations between expressions
}

// Query returns the rows matching a textual expression such as
// `amount > 10 AND name ~ "ann"`. Operators are = != > < >= <= and ~
// (contains); AND/OR combine left to right. It panics with a *KeyError for
// unknown columns and with ErrInvalidQuery for malformed input.
func (f *Frame) Query(expr string) *Frame {
	f.check()
	q, err := ParseQuery(expr, f.Columns())
	if err != nil {
		panic(err)
	}
	return f.Filter(q.Mask(f))
}

// ParseQuery parses a query string against the given column names.
func ParseQuery(queryStr string, columns []string) (*Query, error) {
	if strings.TrimSpace(queryStr) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	query := &Query{
		Expressions: make([]Expression, 0),
		LogicOps:    make([]LogicOp, 0),
	}

	for _, part := range splitByLogicOps(queryStr) {
		if part.isOperator {
			if part.text == "AND" {
				query.LogicOps = append(query.LogicOps, LogicAND)
			} else {
				query.LogicOps = append(query.LogicOps, LogicOR)
			}
			continue
		}
		expr, err := parseExpression(part.text)
		if err != nil {
			return nil, err
		}
		if !known[expr.ColumnName] {
			return nil, &KeyError{Key: expr.ColumnName}
		}
		query.Expressions = append(query.Expressions, expr)
	}

	// N expressions need N-1 operators
	if len(query.Expressions) == 0 || len(query.LogicOps) != len(query.Expressions)-1 {
		return nil, fmt.Errorf("%w: mismatched expressions and operators", ErrInvalidQuery)
	}

	return query, nil
}

type queryPart struct {
	text       string
	isOperator bool
}

// splitByLogicOps splits query by AND/OR while preserving the operators.
// Quoted values are never split.
func splitByLogicOps(query string) []queryPart {
	parts := make([]queryPart, 0)
	var current strings.Builder
	var quote byte

	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			parts = append(parts, queryPart{text: t})
		}
		current.Reset()
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			current.WriteByte(c)
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			current.WriteByte(c)
			continue
		}

		if op, n := logicWordAt(query, i); n > 0 {
			flush()
			parts = append(parts, queryPart{text: op, isOperator: true})
			i += n - 1
			continue
		}
		current.WriteByte(c)
	}
	flush()

	return parts
}

// logicWordAt reports an AND/OR keyword at a word boundary.
func logicWordAt(s string, i int) (string, int) {
	for _, word := range []string{"AND", "OR"} {
		n := len(word)
		if i+n > len(s) || !strings.EqualFold(s[i:i+n], word) {
			continue
		}
		if (i == 0 || isWhitespace(s[i-1])) && (i+n == len(s) || isWhitespace(s[i+n])) {
			return word, n
		}
	}
	return "", 0
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseExpression parses a single expression like "column = value"
func parseExpression(exprStr string) (Expression, error) {
	exprStr = strings.TrimSpace(exprStr)

	// Longer symbols first so >= is not read as >
	operators := []struct {
		op     CompOp
		symbol string
	}{
		{OpGreaterEqual, ">="},
		{OpLessEqual, "<="},
		{OpNotEqual, "!="},
		{OpEqual, "=="},
		{OpEqual, "="},
		{OpGreater, ">"},
		{OpLess, "<"},
		{OpContains, "~"},
	}

	for _, opInfo := range operators {
		idx := strings.Index(exprStr, opInfo.symbol)
		if idx > 0 {
			columnName := strings.Trim(strings.TrimSpace(exprStr[:idx]), "`")
			value := strings.TrimSpace(exprStr[idx+len(opInfo.symbol):])
			value = strings.Trim(value, "\"'")

			return Expression{
				ColumnName: columnName,
				Operator:   opInfo.op,
				Value:      value,
			}, nil
		}
	}

	return Expression{}, fmt.Errorf("%w: no operator in %q", ErrInvalidQuery, exprStr)
}

// Mask evaluates the query against every row of f.
func (q *Query) Mask(f *Frame) Mask {
	result := q.Expressions[0].mask(f)
	for i, op := range q.LogicOps {
		result = Combine(op, result, q.Expressions[i+1].mask(f))
	}
	return result
}

func (e Expression) mask(f *Frame) Mask {
	s := f.Col(e.ColumnName)
	m := make(Mask, s.Len())
	for i := range m {
		v := valueAt(s.arr, i)
		if v == nil {
			continue
		}
		m[i] = e.match(v)
	}
	return m
}

func (e Expression) match(v any) bool {
	cellValue := formatScalar(v)

	switch e.Operator {
	case OpEqual:
		if x, ok := toFloat64(v); ok {
			if y, err := strconv.ParseFloat(e.Value, 64); err == nil {
				return x == y
			}
		}
		return strings.EqualFold(cellValue, e.Value)

	case OpNotEqual:
		return !Expression{Operator: OpEqual, Value: e.Value}.match(v)

	case OpContains:
		return strings.Contains(strings.ToLower(cellValue), strings.ToLower(e.Value))

	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return compareNumeric(v, e.Value, e.Operator)
	}

	return false
}

// compareNumeric compares numerically, falling back to a case-insensitive
// string comparison when either side is not a number.
func compareNumeric(v any, compareValue string, op CompOp) bool {
	cell, ok := toFloat64(v)
	compare, err := strconv.ParseFloat(strings.TrimSpace(compareValue), 64)

	cmp := 0
	if !ok || err != nil {
		cmp = strings.Compare(strings.ToLower(formatScalar(v)), strings.ToLower(compareValue))
	} else if cell < compare {
		cmp = -1
	} else if cell > compare {
		cmp = 1
	}

	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}

	return false
}
