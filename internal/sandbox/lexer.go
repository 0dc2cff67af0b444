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
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenKeyword    TokenType = iota // if, for, func, return, etc.
	TokenString                      // "...", `...`, '...'
	TokenComment                     // //, /* */
	TokenNumber                      // 123, 3.14, 0x1A
	TokenOperator                    // +, -, *, :=, ==
	TokenIdentifier                  // variable names
	TokenOther
)

// Token is one lexeme of a source line.
type Token struct {
	Type TokenType
	Text string
}

// Go keywords registry
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true,
	"continue": true, "default": true, "defer": true, "else": true,
	"fallthrough": true, "for": true, "func": true, "go": true,
	"goto": true, "if": true, "import": true, "interface": true,
	"map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true,
	"var": true,
}

// Operators ordered longest first so scanning is maximal munch.
var goOperators = []string{
	"<<=", ">>=", "&^=", "...",
	"&&", "||", "<-", "++", "--", "==", "!=", "<=", ">=", ":=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", "&^",
	"+", "-", "*", "/", "%", "&", "|", "^", "<", ">", "=", "!",
	"(", ")", "[", "]", "{", "}", ",", ";", ".", ":", "~",
}

var assignOperators = map[string]bool{
	"=": true, ":=": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"%=": true, "&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	"&^=": true, "++": true, "--": true,
}

// ScanLine splits a single line into tokens. Whitespace is dropped.
// An unterminated block comment or raw string runs to the end of the line.
func ScanLine(line string) []Token {
	runes := []rune(line)
	tokens := make([]Token, 0, len(runes)/2)
	pos := 0

	for pos < len(runes) {
		r := runes[pos]

		if unicode.IsSpace(r) {
			pos++
			continue
		}

		// Line comment: rest of the line
		if r == '/' && pos+1 < len(runes) && runes[pos+1] == '/' {
			tokens = append(tokens, Token{TokenComment, string(runes[pos:])})
			break
		}

		if r == '/' && pos+1 < len(runes) && runes[pos+1] == '*' {
			end := scanBlockComment(runes, pos)
			tokens = append(tokens, Token{TokenComment, string(runes[pos:end])})
			pos = end
			continue
		}

		if r == '"' || r == '`' || r == '\'' {
			end := scanString(runes, pos)
			tokens = append(tokens, Token{TokenString, string(runes[pos:end])})
			pos = end
			continue
		}

		if isDigit(r) {
			end := scanNumber(runes, pos)
			tokens = append(tokens, Token{TokenNumber, string(runes[pos:end])})
			pos = end
			continue
		}

		if isLetter(r) {
			end := scanIdentifier(runes, pos)
			word := string(runes[pos:end])
			typ := TokenIdentifier
			if goKeywords[word] {
				typ = TokenKeyword
			}
			tokens = append(tokens, Token{typ, word})
			pos = end
			continue
		}

		if op := matchOperator(runes[pos:]); op != "" {
			tokens = append(tokens, Token{TokenOperator, op})
			pos += len([]rune(op))
			continue
		}

		tokens = append(tokens, Token{TokenOther, string(r)})
		pos++
	}

	return tokens
}

// scanString parses a string or rune literal starting at position start
func scanString(runes []rune, start int) int {
	quote := runes[start]
	pos := start + 1

	if quote == '`' {
		for pos < len(runes) {
			if runes[pos] == '`' {
				return pos + 1
			}
			pos++
		}
		return pos
	}

	for pos < len(runes) {
		if runes[pos] == '\\' && pos+1 < len(runes) {
			pos += 2
			continue
		}
		if runes[pos] == quote {
			return pos + 1
		}
		pos++
	}
	return pos
}

func scanBlockComment(runes []rune, start int) int {
	pos := start + 2
	for pos+1 < len(runes) {
		if runes[pos] == '*' && runes[pos+1] == '/' {
			return pos + 2
		}
		pos++
	}
	return len(runes)
}

// scanNumber parses a number literal starting at position start
func scanNumber(runes []rune, start int) int {
	pos := start
	for pos < len(runes) {
		r := runes[pos]
		if (r == '+' || r == '-') && (runes[pos-1] == 'e' || runes[pos-1] == 'E') {
			pos++
			continue
		}
		if !isDigit(r) && !isLetter(r) && r != '.' {
			break
		}
		pos++
	}
	return pos
}

// scanIdentifier parses an identifier starting at position start
func scanIdentifier(runes []rune, start int) int {
	pos := start
	for pos < len(runes) && (isLetter(runes[pos]) || isDigit(runes[pos])) {
		pos++
	}
	return pos
}

func matchOperator(rest []rune) string {
	s := string(rest[:min(len(rest), 3)])
	for _, op := range goOperators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// HasAssignment reports whether line contains an assignment, short variable
// declaration or increment outside string literals and comments.
func HasAssignment(line string) bool {
	for _, tok := range ScanLine(line) {
		if tok.Type == TokenOperator && assignOperators[tok.Text] {
			return true
		}
	}
	return false
}

// startsWithKeyword reports whether the first token of line is the keyword kw.
func startsWithKeyword(line, kw string) bool {
	tokens := ScanLine(line)
	return len(tokens) > 0 && tokens[0].Type == TokenKeyword && tokens[0].Text == kw
}
