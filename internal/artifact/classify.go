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

package artifact

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

// MaxTextLength is the number of runes kept by the fallback rule.
const MaxTextLength = 2000

// Builder serializes v. ok is false when the rule does not apply to v.
type Builder func(v any) (data string, ok bool, err error)

// Rule produces artifacts of one kind.
type Rule struct {
	Kind  Kind
	Build Builder
}

// TableRule serializes Table values.
func TableRule() Rule {
	return Rule{Kind: KindTable, Build: func(v any) (string, bool, error) {
		t, ok := v.(Table)
		if !ok {
			return "", false, nil
		}
		b, err := t.MarshalSplit()
		return string(b), true, err
	}}
}

// RasterRule renders Raster values as base64 PNG.
func RasterRule() Rule {
	return Rule{Kind: KindPlot, Build: func(v any) (string, bool, error) {
		r, ok := v.(Raster)
		if !ok {
			return "", false, nil
		}
		png, err := r.RenderPNG()
		if err != nil {
			return "", true, err
		}
		return base64.StdEncoding.EncodeToString(png), true, nil
	}}
}

// EmbedRule renders Embeddable values as HTML fragments.
func EmbedRule() Rule {
	return Rule{Kind: KindPlotly, Build: func(v any) (string, bool, error) {
		e, ok := v.(Embeddable)
		if !ok {
			return "", false, nil
		}
		html, err := e.HTML()
		return html, true, err
	}}
}

// ScalarRule formats strings, booleans and numbers.
func ScalarRule() Rule {
	return Rule{Kind: KindText, Build: func(v any) (string, bool, error) {
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.String, reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
		default:
			return "", false, nil
		}
		if s, ok := v.(fmt.Stringer); ok {
			return s.String(), true, nil
		}
		switch rv.Kind() {
		case reflect.Float64:
			return frame.FormatFloat(rv.Float()), true, nil
		case reflect.Float32:
			return strconv.FormatFloat(rv.Float(), 'g', -1, 32), true, nil
		}
		return fmt.Sprint(v), true, nil
	}}
}

// FallbackRule formats anything, truncated to MaxTextLength runes.
func FallbackRule() Rule {
	return Rule{Kind: KindText, Build: func(v any) (string, bool, error) {
		return Truncate(fmt.Sprintf("%v", v), MaxTextLength), true, nil
	}}
}

// DefaultRules returns the rules in priority order.
func DefaultRules() []Rule {
	return []Rule{TableRule(), RasterRule(), EmbedRule(), ScalarRule(), FallbackRule()}
}

// Truncate keeps the first n runes of s and marks the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Classifier converts values to artifacts with an ordered rule list.
type Classifier struct {
	rules []Rule
	log   *slog.Logger
}

// NewClassifier returns a classifier using rules, or DefaultRules when
// none are given.
func NewClassifier(logger *slog.Logger, rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{rules: rules, log: logger}
}

// Classify converts v using the first rule that applies. Nil values and
// functions are declined.
func (c *Classifier) Classify(v any) (Artifact, bool) {
	if declined(v) {
		return Artifact{}, false
	}
	for _, rule := range c.rules {
		data, ok, err := build(rule, v)
		if !ok {
			continue
		}
		if err != nil {
			c.log.Warn("failed to render artifact", "kind", rule.Kind, "type", fmt.Sprintf("%T", v), "error", err)
			return Artifact{Type: KindText, Data: fmt.Sprintf("Failed to render %s output: %v", rule.Kind, err)}, true
		}
		return Artifact{Type: rule.Kind, Data: data}, true
	}
	return Artifact{}, false
}

func build(rule Rule, v any) (data string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, ok, err = "", true, fmt.Errorf("%v", r)
		}
	}()
	return rule.Build(v)
}

func declined(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return true
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
