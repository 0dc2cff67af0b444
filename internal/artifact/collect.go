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
	"reflect"
)

// Collect classifies the candidates in precedence order: the direct result,
// then open charts, then bound names. A value already emitted is skipped,
// and so is a binding holding a plain value equal to the direct result.
// An empty collection yields a single NoOutput text artifact.
func (c *Classifier) Collect(cand Candidates) []Artifact {
	seen := make(map[identity]bool)
	out := make([]Artifact, 0, 1+len(cand.Charts)+len(cand.Bindings))

	emit := func(v any) {
		if id, ok := identityOf(v); ok {
			if seen[id] {
				return
			}
			seen[id] = true
		}
		if a, ok := c.Classify(v); ok {
			out = append(out, a)
		}
	}

	if cand.HasResult {
		emit(cand.Result)
	}
	for _, ch := range cand.Charts {
		emit(ch)
	}
	for _, b := range cand.Bindings {
		if cand.HasResult && (b.Name == cand.ResultName || sameValue(cand.Result, b.Value)) {
			continue
		}
		emit(b.Value)
	}

	if len(out) == 0 {
		out = append(out, Artifact{Type: KindText, Data: NoOutput})
	}
	return out
}

// sameValue reports whether two plain values are equal. Reference values
// are left to identity deduplication.
func sameValue(a, b any) bool {
	if a == nil || b == nil || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if _, ok := identityOf(a); ok {
		return false
	}
	if !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}

type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// identityOf keys reference values by address. Plain values have no
// identity and are never deduplicated.
func identityOf(v any) (identity, bool) {
	if o, ok := v.(Owned); ok {
		if owner := o.Owner(); owner != nil {
			v = owner
		}
	}
	if v == nil {
		return identity{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		return identity{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	}
	return identity{}, false
}
