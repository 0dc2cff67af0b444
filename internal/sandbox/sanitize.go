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

package sandbox

import (
	"go/parser"
	"strings"
)

// Lines starting with these never yield a direct result.
var statementPrefixes = []string{"print(", "println(", "plot.", "chart."}

// Sanitize removes every line whose first token is the import keyword.
// All other lines are kept in order, unchanged.
func Sanitize(code string) string {
	lines := strings.Split(code, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if startsWithKeyword(strings.TrimSpace(line), "import") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Split separates code into a statement block and a trailing expression.
// expr is empty when the last non-empty line is not a pure expression.
func Split(code string) (block, expr string) {
	lines := strings.Split(code, "\n")
	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if last < 0 {
		return "", ""
	}

	candidate := strings.TrimSpace(lines[last])
	if !IsPureExpression(candidate) {
		return code, ""
	}
	return strings.Join(lines[:last], "\n"), candidate
}

// IsPureExpression reports whether line can be evaluated for its value.
func IsPureExpression(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, p := range statementPrefixes {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	if HasAssignment(line) || strings.HasSuffix(line, "{") {
		return false
	}
	_, err := parser.ParseExpr(line)
	return err == nil
}
