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

// fakeMetrics forwards select events onto buffered channels so tests can
// synchronize on them instead of polling plain fields from another
// goroutine.
type fakeMetrics struct {
	NoopMetrics
	blacklistAdd chan string
	poolClosed   chan struct{}
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		blacklistAdd: make(chan string, 16),
		poolClosed:   make(chan struct{}, 1),
	}
}

func (m *fakeMetrics) BlacklistAdd(addr string) {
	select {
	case m.blacklistAdd <- addr:
	default:
	}
}

func (m *fakeMetrics) PoolClosed() {
	select {
	case m.poolClosed <- struct{}{}:
	default:
	}
}

// fakeErrorLog records shutdown notifications the same way.
type fakeErrorLog struct {
	NoopErrorLog
	shuttingDown chan ShutdownReason
}

func newFakeErrorLog() *fakeErrorLog {
	return &fakeErrorLog{shuttingDown: make(chan ShutdownReason, 4)}
}

func (e *fakeErrorLog) PoolShuttingDown(reason ShutdownReason) {
	select {
	case e.shuttingDown <- reason:
	default:
	}
}
