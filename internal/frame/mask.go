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

import "fmt"

// Mask selects rows of a frame. Null cells never match.
type Mask []bool

// LogicOp represents a logical operator for combining masks.
type LogicOp int

const (
	// LogicAND requires all masks to match.
	LogicAND LogicOp = iota
	// LogicOR requires at least one mask to match.
	LogicOR
)

// String returns the string representation of a LogicOp.
func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", int(op))
	}
}

// Combine merges masks of equal length with AND or OR logic.
// An empty list matches nothing.
func Combine(op LogicOp, masks ...Mask) Mask {
	if len(masks) == 0 {
		return Mask{}
	}
	out := make(Mask, len(masks[0]))
	copy(out, masks[0])
	for _, m := range masks[1:] {
		if len(m) != len(out) {
			panic(fmt.Errorf("%w: masks of length %d and %d", ErrLengthMismatch, len(out), len(m)))
		}
		for i := range out {
			switch op {
			case LogicAND:
				out[i] = out[i] && m[i]
			case LogicOR:
				out[i] = out[i] || m[i]
			}
		}
	}
	return out
}

// And returns the element-wise conjunction of two masks.
func (m Mask) And(o Mask) Mask { return Combine(LogicAND, m, o) }

// Or returns the element-wise disjunction of two masks.
func (m Mask) Or(o Mask) Mask { return Combine(LogicOR, m, o) }

// Not returns the inverted mask.
func (m Mask) Not() Mask {
	out := make(Mask, len(m))
	for i, v := range m {
		out[i] = !v
	}
	return out
}

// Count returns the number of selected rows.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

func (m Mask) indices() []int {
	idx := make([]int, 0, m.Count())
	for i, v := range m {
		if v {
			idx = append(idx, i)
		}
	}
	return idx
}
