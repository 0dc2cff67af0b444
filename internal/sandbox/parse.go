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
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"slices"
	"strings"
	"sync"
)

// The block is parsed as a function body, where import is not part of the
// grammar. headerLines is the number of lines before the user's first line.
const (
	blockHeader = "package snippet\nfunc _() {\n"
	headerLines = 2
)

// ErrGoStatement is returned for snippets that start goroutines. A goroutine
// would keep running against the dataset after the run has returned.
var ErrGoStatement = errors.New("go statements are not allowed")

type statement struct {
	source string
	node   ast.Node
	offset int
}

// parseBlock splits a statement block into top-level statements, each of
// which is evaluated on its own so that declarations and simple statements
// can be mixed freely. Function declarations are kept in source order.
func parseBlock(block string) ([]statement, error) {
	if strings.TrimSpace(block) == "" {
		return nil, nil
	}

	decls := funcDecls(block)
	src := blockHeader + blank(block, decls) + "\n}\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, syntaxError(err)
	}

	body := file.Decls[0].(*ast.FuncDecl).Body.List
	stmts := make([]statement, 0, len(body)+len(decls))
	for _, st := range body {
		if _, ok := st.(*ast.EmptyStmt); ok {
			continue
		}
		if err := rejectGoStatements(fset, st, headerLines); err != nil {
			return nil, err
		}
		start := fset.Position(st.Pos()).Offset
		end := fset.Position(st.End()).Offset
		source := src[start:end]
		if startsWithKeyword(source, "func") {
			// a leading func keyword reads as a declaration at the top level
			source = "{\n" + source + "\n}"
		}
		stmts = append(stmts, statement{source: source, node: st, offset: start - len(blockHeader)})
	}

	for _, d := range decls {
		source := block[d.start:d.end]
		line := strings.Count(block[:d.start], "\n")
		fn, err := parseFuncDecl(source, line)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, statement{source: source, node: fn, offset: d.start})
	}
	slices.SortFunc(stmts, func(a, b statement) int { return a.offset - b.offset })
	return stmts, nil
}

// parseFuncDecl parses one function declaration that starts after the
// given number of lines of the block.
func parseFuncDecl(source string, line int) (*ast.FuncDecl, error) {
	pad := "package snippet\n\n" + strings.Repeat("\n", line)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet", pad+source, parser.SkipObjectResolution)
	if err != nil {
		return nil, syntaxError(err)
	}
	if len(file.Decls) != 1 {
		return nil, fmt.Errorf("syntax error at line %d: expected a single declaration", line+1)
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok {
		return nil, fmt.Errorf("syntax error at line %d: expected a function declaration", line+1)
	}
	if err := rejectGoStatements(fset, fn, headerLines); err != nil {
		return nil, err
	}
	return fn, nil
}

// rejectGoStatements fails on the first go statement found under n.
func rejectGoStatements(fset *token.FileSet, n ast.Node, skip int) error {
	var found *ast.GoStmt
	ast.Inspect(n, func(n ast.Node) bool {
		if g, ok := n.(*ast.GoStmt); ok && found == nil {
			found = g
		}
		return found == nil
	})
	if found == nil {
		return nil
	}
	line := max(fset.Position(found.Pos()).Line-skip, 1)
	return fmt.Errorf("%w (line %d)", ErrGoStatement, line)
}

// checkExpression applies the statement rules to a trailing expression on
// the given line.
func checkExpression(expr string, line int) error {
	fset := token.NewFileSet()
	e, err := parser.ParseExprFrom(fset, "snippet", expr, parser.SkipObjectResolution)
	if err != nil {
		return nil
	}
	return rejectGoStatements(fset, e, 1-line)
}

type span struct{ start, end int }

// funcDecls locates top-level function and method declarations in block.
// A func keyword followed by a name, or by a receiver and a name, starts a
// declaration that ends with the closing brace of its body.
func funcDecls(block string) []span {
	type lexeme struct {
		tok token.Token
		off int
	}
	fset := token.NewFileSet()
	file := fset.AddFile("snippet", -1, len(block))
	var s scanner.Scanner
	s.Init(file, []byte(block), nil, 0)
	var toks []lexeme
	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.SEMICOLON {
			continue
		}
		toks = append(toks, lexeme{tok: tok, off: file.Offset(pos)})
	}
	at := func(i int) token.Token {
		if i < len(toks) {
			return toks[i].tok
		}
		return token.EOF
	}
	// closing returns the index of the token closing the one at i.
	closing := func(i int) int {
		depth := 0
		for j := i; j < len(toks); j++ {
			switch toks[j].tok {
			case token.LPAREN, token.LBRACK, token.LBRACE:
				depth++
			case token.RPAREN, token.RBRACK, token.RBRACE:
				depth--
				if depth == 0 {
					return j
				}
			}
		}
		return -1
	}

	var decls []span
	depth := 0
	for i := 0; i < len(toks); i++ {
		switch toks[i].tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
			continue
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
			continue
		case token.FUNC:
		default:
			continue
		}
		if depth != 0 {
			continue
		}

		j := i + 1
		if at(j) == token.LPAREN {
			if j = closing(j); j < 0 {
				break
			}
			j++
		}
		if at(j) != token.IDENT || (at(j+1) != token.LPAREN && at(j+1) != token.LBRACK) {
			continue
		}

		body := -1
		for k := j + 1; k < len(toks) && body < 0; k++ {
			switch toks[k].tok {
			case token.LPAREN, token.LBRACK:
				if k = closing(k); k < 0 {
					k = len(toks)
				}
			case token.STRUCT, token.INTERFACE:
				if at(k+1) == token.LBRACE {
					if k = closing(k + 1); k < 0 {
						k = len(toks)
					}
				}
			case token.LBRACE:
				body = k
			}
		}
		if body < 0 {
			break
		}
		end := closing(body)
		if end < 0 {
			break
		}
		decls = append(decls, span{start: toks[i].off, end: toks[end].off + 1})
		i = end
	}
	return decls
}

// blank replaces the given spans with spaces, keeping line breaks so that
// positions in the rest of the block do not move.
func blank(block string, spans []span) string {
	if len(spans) == 0 {
		return block
	}
	b := []byte(block)
	for _, sp := range spans {
		for k := sp.start; k < sp.end; k++ {
			if b[k] != '\n' {
				b[k] = ' '
			}
		}
	}
	return string(b)
}

func syntaxError(err error) error {
	var list scanner.ErrorList
	if !errors.As(err, &list) || len(list) == 0 {
		return err
	}
	first := list[0]
	line := max(first.Pos.Line-headerLines, 1)
	return fmt.Errorf("syntax error at line %d, column %d: %s", line, first.Pos.Column, first.Msg)
}

// evalSource prepares a trailing expression for evaluation.
func evalSource(expr string) string {
	if startsWithKeyword(expr, "func") {
		return "(" + expr + ")"
	}
	return expr
}

// identifier returns expr when it is a bare identifier.
func identifier(expr string) string {
	e, err := parser.ParseExpr(expr)
	if err != nil {
		return ""
	}
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// bindings lists the names assigned or declared by top-level statements in
// first-binding order, leaving out reserved names.
func bindings(stmts []statement, reserved []string) []string {
	var names []string
	add := func(id *ast.Ident) {
		if id == nil || slices.Contains(reserved, id.Name) || slices.Contains(names, id.Name) {
			return
		}
		names = append(names, id.Name)
	}

	for _, st := range stmts {
		switch n := st.node.(type) {
		case *ast.AssignStmt:
			for _, lhs := range n.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					add(id)
				}
			}
		case *ast.DeclStmt:
			gen, ok := n.Decl.(*ast.GenDecl)
			if !ok || (gen.Tok != token.VAR && gen.Tok != token.CONST) {
				continue
			}
			for _, spec := range gen.Specs {
				if vs, ok := spec.(*ast.ValueSpec); ok {
					for _, id := range vs.Names {
						add(id)
					}
				}
			}
		}
	}
	return names
}

// syncBuffer collects interpreter output. A timed out run may still write
// after Execute has returned.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
