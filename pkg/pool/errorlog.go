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

import "log"

// ErrorLog 是 Multiplexer 汇报"单个端点失败"的插件接口（spec §6/§7）：
// 所有瞬时的、单端点级别的失败都只通过这里（和 Metrics）暴露给调用方，
// 永远不会作为 start_send 的返回错误。
type ErrorLog interface {
	ConnectionError(addr string, err error)
	SinkError(addr string, err error)
	PoolShuttingDown(reason ShutdownReason)
	PoolClosed()
}

// NoopErrorLog 什么都不记录。
type NoopErrorLog struct{}

func (NoopErrorLog) ConnectionError(string, error)    {}
func (NoopErrorLog) SinkError(string, error)          {}
func (NoopErrorLog) PoolShuttingDown(ShutdownReason)  {}
func (NoopErrorLog) PoolClosed()                      {}

// StdLogger 用标准库 log 包记录错误，延续直接用 log.Println/log.Printf
// 记操作日志的风格，不引入第三方结构化日志库。
type StdLogger struct {
	*log.Logger
}

// NewStdLogger 包装给定的 *log.Logger；传 nil 则使用 log 包的默认 logger。
func NewStdLogger(l *log.Logger) StdLogger {
	if l == nil {
		l = log.Default()
	}
	return StdLogger{Logger: l}
}

func (s StdLogger) ConnectionError(addr string, err error) {
	s.Printf("pool: connecting to %s failed: %v", addr, err)
}

func (s StdLogger) SinkError(addr string, err error) {
	s.Printf("pool: connection to %s errored: %v", addr, err)
}

func (s StdLogger) PoolShuttingDown(reason ShutdownReason) {
	s.Printf("pool: shutting down (%s)", reason)
}

func (s StdLogger) PoolClosed() {
	s.Printf("pool: closed")
}
