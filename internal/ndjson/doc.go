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

// Package ndjson reads and writes newline delimited JSON files that grow by
// appending.
//
// Each line holds one JSON document. Writers append whole lines, so the only
// damage a crash can do is a final line without its newline. Readers treat
// such a line as never written and stop before it, and opening a file for
// append first cuts it off, so the next record starts on a fresh line.
//
// Example usage:
//
//	w, err := ndjson.OpenFile("smooth.ndjson")
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	err = w.Write(record)
package ndjson
