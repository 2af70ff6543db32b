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

import "errors"

// ErrDone 是 Multiplexer 对外暴露的唯一错误：池已经永久停止接受新请求。
// 所有单个端点的失败（连接失败、sink 失败）都被吸收在 Multiplexer 内部，
// 只通过 ErrorLog/Metrics 汇报，永远不会作为 start_send 的错误返回。
var ErrDone = errors.New("pool: done, not accepting further requests")

// ShutdownReason 说明池为什么开始关闭。
type ShutdownReason int

const (
	// RequestStreamClosed 表示上游的请求队列/intake 流已经结束（正常关闭）。
	RequestStreamClosed ShutdownReason = iota
	// AddressStreamClosed 表示地址解析流结束，这是致命错误（没有地址来源了）。
	AddressStreamClosed
)

func (r ShutdownReason) String() string {
	switch r {
	case RequestStreamClosed:
		return "request stream closed"
	case AddressStreamClosed:
		return "address stream closed"
	default:
		return "unknown shutdown reason"
	}
}

// QueueError 在调用方尝试给一个已关闭的 Queue 投递请求时返回，
// 归还 Item 的所有权，调用方可以选择换一个池重试或者放弃。
type QueueError[T any] struct {
	Item T
}

func (e *QueueError[T]) Error() string {
	return "pool: queue closed, item returned to caller"
}
