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

package plot

import (
	"fmt"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

// Values converts a numeric slice or a numeric column into float64s.
// Nulls become NaN and are skipped when drawing.
func Values(v any) []float64 {
	switch x := v.(type) {
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return out
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out
	case []int64:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out
	case *frame.Series:
		return x.Floats()
	}
	panic(&frame.TypeError{Op: "plot values", Detail: fmt.Sprintf("cannot plot %T", v)})
}

// Labels converts a string slice or any column into category labels.
func Labels(v any) []string {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case *frame.Series:
		return x.Strings()
	case []int, []int64, []float64:
		vals := Values(x)
		out := make([]string, len(vals))
		for i, f := range vals {
			out[i] = frame.FormatFloat(f)
		}
		return out
	}
	panic(&frame.TypeError{Op: "plot labels", Detail: fmt.Sprintf("cannot use %T as labels", v)})
}
