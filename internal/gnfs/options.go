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

package gnfs

import (
	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// Option configures a Controller.
type Option func(*Controller)

// WithSink sends checkpoint data to sink. Calls are queued and applied in
// order by a background goroutine; Close drains the queue.
func WithSink(sink state.Sink) Option {
	return func(c *Controller) {
		c.rawSink = sink
	}
}

// WithRetry sets the retry policy for checkpoint writes.
func WithRetry(retry *checkpoint.RetryConfig) Option {
	return func(c *Controller) {
		c.retry = retry
	}
}

// WithProgress receives a message at every phase boundary and milestone.
func WithProgress(fn state.ProgressFunc) Option {
	return func(c *Controller) {
		c.progressFn = fn
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o state.Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
