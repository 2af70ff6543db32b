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

import "context"

// driveOutcome 描述一次 SinkDriver 活动（一次"poll"）的结果。
type driveOutcome int

const (
	// driveContinue 表示这个连接还活着，但这次活动没有让它重新可以接受请求
	// （遇到了背压，或者空闲时的 flush 还没有完成），不需要重新入队。
	driveContinue driveOutcome = iota
	// driveReady 表示这个连接刚刚接受了一个 item，或者 flush 完成、空闲下来，
	// 可以把它的 controller 重新放回 ready 队列。
	driveReady
	// driveClosed 表示连接按 Multiplexer 的请求正常关闭。
	driveClosed
	// driveDisconnected 表示底层 sink 出错，连接需要被放弃。
	driveDisconnected
)

// driveSink 推进一个连接一步，对应 spec 4.4 SinkDriver 的状态机。它不是一个
// 独立的 goroutine：和 Multiplexer 的其它状态一样，它被 Multiplexer 所在的
// goroutine 同步调用，因此不需要锁。
//
// closing 为 true 表示这个连接已经被标记退休（地址从快照中消失）或者整个
// 池正在关闭；驱动器会在排空当前 pending 之后主动调用 sink.Close。
func driveSink[T any](ctx context.Context, h SinkHelper[T], closing bool) (driveOutcome, error) {
	// 1. 有待发送的 item：优先尝试发送，已投递的请求必须在关闭前完成。
	if item, has := h.Take(); has {
		ok, err := h.Sink().TrySend(ctx, item)
		if err != nil {
			h.MarkClosed()
			return driveDisconnected, err
		}
		if ok {
			h.ClearWait()
			return driveReady, nil
		}
		// 背压：放回 slot，等待 Ready() 的唤醒再重试，这一步不重新入队。
		h.PutBack(item)
		return driveContinue, nil
	}

	// 2. 没有待发送的 item，且 Multiplexer 已经要求关闭：直接关闭底层连接。
	if closing {
		if err := h.Sink().Close(ctx); err != nil {
			h.MarkClosed()
			return driveDisconnected, err
		}
		h.MarkClosed()
		return driveClosed, nil
	}

	// 3. 没有待发送的 item，也不需要关闭：冲刷一下，保持连接处于就绪状态。
	flushed, err := h.Sink().PollFlush(ctx)
	if err != nil {
		h.MarkClosed()
		return driveDisconnected, err
	}
	if flushed {
		return driveReady, nil
	}
	return driveContinue, nil
}
