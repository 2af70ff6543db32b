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
	"time"

	"github.com/google/uuid"
)

// connSlot 是一条活跃连接的共享状态：一次只持有一个待发送的请求，外加一个
// 终态 closed 标志。spec 把它描述为一个由两个所有者（driver 和
// Multiplexer）共享的单一分配；在 Go 里我们用一个结构体加两个只暴露各自
// 操作子集的视图（SinkHelper / Controller）来表达同样的意图。因为整个
// Multiplexer 的状态迁移都被限定在它自己的 goroutine 上执行（见 spec §5），
// 这里不需要互斥锁。
type connSlot[T any] struct {
	id          uuid.UUID
	addr        string
	sink        Sink[T]
	connectedAt time.Time

	pending     *T   // 至多一个待发送的 item；nil 表示空
	pendingWait bool // TrySend 曾经因背压返回 false，正在等 Ready() 的唤醒
	queued      bool // Controller 当前是否在 Multiplexer 的 ready 队列里
	closed      bool // 终态：driver 一侧决定退出后置位
	retiring    bool // 地址已经从快照中消失，或者整个池在关闭：排空后应主动 Close
}

func newConnSlot[T any](addr string, sink Sink[T]) *connSlot[T] {
	return &connSlot[T]{
		id:          uuid.New(),
		addr:        addr,
		sink:        sink,
		connectedAt: time.Now(),
	}
}

// SinkHelper 是 SinkDriver 一侧看到的视图：它拥有 pending（通过 Take 取走），
// 可以标记自己关闭。
type SinkHelper[T any] struct {
	s *connSlot[T]
}

// Take 取走当前待发送的 item（如果有）。
func (h SinkHelper[T]) Take() (item T, ok bool) {
	if h.s.pending == nil {
		var zero T
		return zero, false
	}
	item = *h.s.pending
	h.s.pending = nil
	return item, true
}

// HasPending 报告是否有待发送的 item，不取走它。
func (h SinkHelper[T]) HasPending() bool {
	return h.s.pending != nil
}

// PutBack 在 TrySend 遇到背压时把 item 放回 slot。
func (h SinkHelper[T]) PutBack(item T) {
	h.s.pending = &item
	h.s.pendingWait = true
}

// ClearWait 在 TrySend 成功接受 item 之后清掉等待标志。
func (h SinkHelper[T]) ClearWait() {
	h.s.pendingWait = false
}

// Waiting 报告这个连接当前是否在等待背压解除的唤醒信号。
func (h SinkHelper[T]) Waiting() bool {
	return h.s.pendingWait
}

// MarkClosed 是唯一可以把 closed 置位的地方：只有 driver 一侧能调用。
func (h SinkHelper[T]) MarkClosed() {
	h.s.closed = true
}

// Addr 返回这个连接的远端地址。
func (h SinkHelper[T]) Addr() string { return h.s.addr }

// Sink 返回底层 sink，供驱动逻辑调用 TrySend/PollFlush/Close。
func (h SinkHelper[T]) Sink() Sink[T] { return h.s.sink }

// ConnectedAt 返回这个连接建立的时间，用于"短命断开"启发式判断。
func (h SinkHelper[T]) ConnectedAt() time.Time { return h.s.connectedAt }

// Controller 是 Multiplexer 一侧看到的视图：可以探测 closed、投递一个请求、
// 或者在投递后立刻遇到背压时把它要回来。
type Controller[T any] struct {
	s *connSlot[T]
}

// ID 返回这条连接的唯一标识，用于日志、指标和 ready 队列里的去重。
func (c Controller[T]) ID() uuid.UUID { return c.s.id }

// Addr 返回这条连接的远端地址。
func (c Controller[T]) Addr() string { return c.s.addr }

// Closed 报告这条连接是否已经终止；已终止的 controller 在下次出队时会被跳过，
// 且永远不会再持有 pending item。
func (c Controller[T]) Closed() bool { return c.s.closed }

// Retire 标记这条连接应当在排空当前 pending 之后关闭：要么是它的地址从最新
// 的解析快照里消失了，要么是整个池正在关闭。
func (c Controller[T]) Retire() { c.s.retiring = true }

// Retiring 报告这条连接是否已经被标记为"排空后关闭"。
func (c Controller[T]) Retiring() bool { return c.s.retiring }

// SetQueued 标记这个 controller 当前是否在 Multiplexer 的 ready 队列里。
func (c Controller[T]) SetQueued(v bool) { c.s.queued = v }

// Queued 报告这个 controller 当前是否在 ready 队列里。
func (c Controller[T]) Queued() bool { return c.s.queued }

// Deposit 投递一个请求：前提是 pending 为空，且这个 controller 正是通过
// ready 队列被取出来的（ready 队列的出队本身已经把它从队列里移除）。
func (c Controller[T]) Deposit(item T) {
	c.s.pending = &item
	c.s.queued = false
}

// Reclaim 在 Deposit 之后，如果驱动逻辑一步之内就遇到了背压，把刚投递、
// 尚未被 driver 取走的 item 要回来，交还给调用方继续尝试下一个 controller。
func (c Controller[T]) Reclaim() (item T, ok bool) {
	if c.s.pending == nil {
		var zero T
		return zero, false
	}
	item = *c.s.pending
	c.s.pending = nil
	return item, true
}

// helper 构造驱动逻辑一侧的视图。
func (s *connSlot[T]) helper() SinkHelper[T]       { return SinkHelper[T]{s: s} }
func (s *connSlot[T]) controller() Controller[T]   { return Controller[T]{s: s} }
