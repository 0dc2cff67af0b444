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
	"unicode/utf8"
)

const maxDisplayRows = 20

// String renders the frame as an aligned text grid. Long frames show the
// first and last rows only.
func (f *Frame) String() string {
	if f == nil {
		return "<nil>"
	}

	rows := make([]int, 0, f.rows)
	elided := false
	if f.rows > maxDisplayRows {
		half := maxDisplayRows / 2
		for r := 0; r < half; r++ {
			rows = append(rows, r)
		}
		for r := f.rows - half; r < f.rows; r++ {
			rows = append(rows, r)
		}
		elided = true
	} else {
		for r := 0; r < f.rows; r++ {
			rows = append(rows, r)
		}
	}

	grid := make([][]string, len(rows)+1)
	grid[0] = append([]string{""}, f.Columns()...)
	for i, r := range rows {
		line := make([]string, len(f.cols)+1)
		line[0] = strconv.Itoa(r)
		for c, s := range f.cols {
			line[c+1] = displayValue(valueAt(s.arr, r))
		}
		grid[i+1] = line
	}

	widths := make([]int, len(f.cols)+1)
	for _, line := range grid {
		for c, cell := range line {
			if w := utf8.RuneCountInString(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}

	var sb strings.Builder
	for i, line := range grid {
		if elided && i == maxDisplayRows/2+1 {
			sb.WriteString("...\n")
		}
		for c, cell := range line {
			if c > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(strings.Repeat(" ", widths[c]-utf8.RuneCountInString(cell)))
			sb.WriteString(cell)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "[%d rows x %d columns]", f.rows, len(f.cols))
	return sb.String()
}
