// Copyright (c) 2025 Taurus Team. All rights reserved.
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

package pool

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewConfigAppliesOptionsOverDefaults(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(5), 5)
	c := NewConfig(
		WithConnLimit(4),
		WithLazy(false),
		WithReconnectTimeout(250*time.Millisecond),
		WithQueueSize(16),
		WithConnectLimiter(limiter),
	)

	if c.ConnLimitPerAddress != 4 {
		t.Errorf("ConnLimitPerAddress = %d, want 4", c.ConnLimitPerAddress)
	}
	if c.Lazy {
		t.Errorf("Lazy = true, want false")
	}
	if c.ReconnectTimeout != 250*time.Millisecond {
		t.Errorf("ReconnectTimeout = %v, want 250ms", c.ReconnectTimeout)
	}
	if c.QueueSize != 16 {
		t.Errorf("QueueSize = %d, want 16", c.QueueSize)
	}
	if c.ConnectLimiter != limiter {
		t.Errorf("ConnectLimiter not set to the given limiter")
	}
}

func TestNewConfigWithNoOptionsMatchesDefaultConfig(t *testing.T) {
	c := NewConfig()
	d := DefaultConfig()
	if *c != *d {
		t.Errorf("NewConfig() = %+v, want DefaultConfig() = %+v", c, d)
	}
}
