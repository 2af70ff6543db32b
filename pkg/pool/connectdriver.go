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
	"context"

	"github.com/google/uuid"
)

// connectResult 是一次连接尝试的最终结果，由 connectDriver 的 goroutine
// 投递到 Multiplexer 的结果信道；三种结局与 spec 4.6 的
// Connected/CantConnect/Aborted 一一对应。
type connectResult[T any] struct {
	attempt uuid.UUID
	addr    string
	sink    Sink[T]
	err     error
	aborted bool
}

// connectDriver 包装一次进行中的连接尝试。真正的拨号是阻塞调用，必须运行在
// 独立的 goroutine 上；但它除了把结果投递回结果信道之外不触碰任何共享状态，
// 因此不违反 spec §5 "所有状态迁移都在 Multiplexer 的 goroutine 上完成"的
// 约束 —— 它只是一个把阻塞 I/O 挪到后台的事件源，就像地址流、定时器一样。
//
// 当它所连接的地址因为快照更新而被退休时，Multiplexer 会调用 cancel，
// connectDriver 在拨号完成时发现 ctx 已经被取消，就把结果报告为 aborted
// 而不是 Connected，即便拨号本身恰好成功了。
type connectDriver[T any] struct {
	attempt uuid.UUID
	addr    string
	cancel  context.CancelFunc
}

// spawnConnectDriver 启动一次连接尝试，返回可以用来中止它的句柄。
func spawnConnectDriver[T any](parent context.Context, addr string, connect ConnectFunc[T], results chan<- connectResult[T]) *connectDriver[T] {
	ctx, cancel := context.WithCancel(parent)
	d := &connectDriver[T]{attempt: uuid.New(), addr: addr, cancel: cancel}

	go func() {
		sink, err := connect(ctx, addr)
		if ctx.Err() != nil {
			if sink != nil {
				_ = sink.Close(context.Background())
			}
			results <- connectResult[T]{attempt: d.attempt, addr: addr, aborted: true}
			return
		}
		if err != nil {
			results <- connectResult[T]{attempt: d.attempt, addr: addr, err: err}
			return
		}
		results <- connectResult[T]{attempt: d.attempt, addr: addr, sink: sink}
	}()

	return d
}

// Abort 取消这次进行中的连接尝试，通常在它的地址被从地址快照中移除时调用。
func (d *connectDriver[T]) Abort() {
	d.cancel()
}
