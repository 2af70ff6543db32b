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

// Metrics 是一组一次性计数器的插件接口（spec §6）；实现应当是并发安全、
// 廉价的（Multiplexer 在它自己的 goroutine 上同步调用这些方法）。
type Metrics interface {
	ConnectionAttempt(addr string)
	Connection(addr string)
	ConnectionError(addr string)
	ConnectionAbort(addr string)
	Disconnect(addr string)
	BlacklistAdd(addr string)
	BlacklistRemove(addr string)
	RequestQueued()
	RequestForwarded()
	PoolClosed()
}

// NoopMetrics 是一个什么都不做的 Metrics 实现，对应 tk-pool 的 Noop collector；
// 这是 Multiplexer 在没有显式配置 Metrics 时使用的默认值。
type NoopMetrics struct{}

func (NoopMetrics) ConnectionAttempt(string) {}
func (NoopMetrics) Connection(string)        {}
func (NoopMetrics) ConnectionError(string)   {}
func (NoopMetrics) ConnectionAbort(string)   {}
func (NoopMetrics) Disconnect(string)        {}
func (NoopMetrics) BlacklistAdd(string)      {}
func (NoopMetrics) BlacklistRemove(string)   {}
func (NoopMetrics) RequestQueued()           {}
func (NoopMetrics) RequestForwarded()        {}
func (NoopMetrics) PoolClosed()              {}
