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

// Package main implements the gnfs command-line interface.
// It maps configuration files, environment variables and flags onto a
// factorization session and renders the session's progress on stderr.
//
// Usage:
//
//	gnfs factor <n> [flags]
//	gnfs resume <session> [flags]
//
// Example:
//
//	gnfs factor 999985999949 --base 9999 --degree 3 --bound 500 --range 1000
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Invalid configuration, or no such session
//   - 3: No factor found within the retry budget; the session can be resumed
//   - 130: Interrupted; the session can be resumed
package main
