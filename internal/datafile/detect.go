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

// Package datafile loads datasets from uploaded files and Delta Sharing
// servers, and exports them again.
package datafile

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

var (
	// ErrUnsupportedFileType is returned for extensions with no parser.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrMalformed is returned when a file cannot be parsed.
	ErrMalformed = errors.New("malformed data file")
)

// FileType represents the type of data file
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeTSV
	FileTypeXLSX
)

func (t FileType) String() string {
	switch t {
	case FileTypeCSV:
		return "csv"
	case FileTypeTSV:
		return "tab-delimited text"
	case FileTypeXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DetectFileType determines the type of file based on its extension
func DetectFileType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV
	case ".txt":
		return FileTypeTSV
	case ".xlsx":
		return FileTypeXLSX
	default:
		return FileTypeUnknown
	}
}

// Parse reads a dataset from r, choosing the parser by filename.
func Parse(filename string, r io.Reader) (*frame.Frame, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)

	switch DetectFileType(filename) {
	case FileTypeCSV:
		header, rows, err = readDelimited(r, ',')
	case FileTypeTSV:
		header, rows, err = readDelimited(r, '\t')
	case FileTypeXLSX:
		header, rows, err = readWorkbook(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	f, err := FromRecords(header, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return f, nil
}
