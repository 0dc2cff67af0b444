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

// Package frame provides an Arrow backed tabular dataset with a small,
// snippet friendly API for selecting, filtering and summarising columns.
package frame

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind represents the element type of a column.
type Kind int

const (
	// KindString represents text or categorical data.
	KindString Kind = iota
	// KindInt represents 64-bit integer data.
	KindInt
	// KindFloat represents 64-bit floating-point data.
	KindFloat
	// KindBool represents boolean data.
	KindBool
)

// String returns the dtype name reported in dataset profiles.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "object"
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Numeric reports whether the kind supports arithmetic and ranges.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// ParseKind maps a dtype name back to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "object", "string", "str":
		return KindString, nil
	case "int64", "int":
		return KindInt, nil
	case "float64", "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	}
	return KindString, fmt.Errorf("%w: unknown dtype %q", ErrTypeMismatch, name)
}

// arrowType returns the Arrow data type used to store the kind.
func (k Kind) arrowType() arrow.DataType {
	switch k {
	case KindInt:
		return arrow.PrimitiveTypes.Int64
	case KindFloat:
		return arrow.PrimitiveTypes.Float64
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// kindOf maps an Arrow type id to the Kind it is stored as.
// Types without a native kind are carried as text.
func kindOf(id arrow.Type) Kind {
	switch id {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat
	case arrow.BOOL:
		return KindBool
	default:
		return KindString
	}
}
