// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ndjson

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadResult describes a completed read.
type ReadResult struct {
	// Lines is the number of complete lines passed to the callback.
	Lines int

	// Truncated reports that a final line without a newline was skipped.
	Truncated bool
}

// Read calls fn with every complete, non-blank line of r in order. A final
// line that lacks its newline is skipped and reported in the result. Reading
// stops at the first error returned by fn.
func Read(r io.Reader, fn func(line []byte) error) (ReadResult, error) {
	var res ReadResult
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			res.Truncated = len(bytes.TrimSpace(line)) > 0
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("failed to read line %d: %w", lineNo, err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return res, fmt.Errorf("line %d: %w", lineNo, err)
		}
		res.Lines++
	}
}

// ReadFile is Read over the contents of filename. A missing file reads as
// empty.
func ReadFile(filename string, fn func(line []byte) error) (ReadResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return ReadResult{}, nil
		}
		return ReadResult{}, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	return Read(file, fn)
}
