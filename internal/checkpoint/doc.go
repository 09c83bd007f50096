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

// Package checkpoint stores factorization sessions so that an interrupted
// run can be resumed.
//
// FileStore keeps one directory per session: the snapshot in session.state,
// one JSON document per factor base and pair collection, and the relations
// in smooth.ndjson, rough.ndjson and free.ndjson. Relation files only ever
// grow by appending whole lines, so a crash can cost at most the line being
// written.
//
// Async wraps any state.Sink so that the engine never waits on storage.
// Requests are queued and applied in order by a single goroutine, retried with
// exponential backoff, and logged when they finally fail. Only the newest
// pending snapshot is kept; relation batches are never dropped.
package checkpoint
