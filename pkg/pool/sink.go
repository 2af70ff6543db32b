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

// Sink 是单个连接上，对外部协议编解码器的抽象：一个有序的、不被本包解释
// 的请求接收端。具体协议（如何编码、如何应答）完全不在本包的职责范围内，
// 调用方通过实现这个接口把任意"可靠有序连接"接入多路复用器。
//
// 方法对应 spec 中 SinkDriver 状态机的三步：TrySend 对应 start_send，
// PollFlush 对应 poll_complete，Close 对应 close。所有方法都不应阻塞：
// 如果底层连接暂时不能接受更多数据，TrySend/PollFlush 返回 ok=false，
// 驱动器转为等待 Ready() 发出的唤醒信号。
type Sink[T any] interface {
	// TrySend 尝试把 item 不阻塞地交给底层连接。
	// ok == true 表示已经接受；ok == false 表示背压，item 的所有权退回调用方。
	TrySend(ctx context.Context, item T) (ok bool, err error)

	// PollFlush 尝试把已接受但尚未发出的数据冲刷出去。
	// flushed == true 表示当前没有待冲刷的数据（连接可以继续接受新 item）。
	PollFlush(ctx context.Context) (flushed bool, err error)

	// Ready 返回一个在连接可能再次就绪时被唤醒的信道；TrySend/PollFlush
	// 返回未就绪后，驱动器会阻塞等待这个信道来重试，而不是忙轮询。
	Ready() <-chan struct{}

	// Close 关闭底层连接。在 Multiplexer 请求关闭、或地址从快照中消失时调用。
	Close(ctx context.Context) error
}

// ConnectFunc 是获取一个新连接的外部协作者：给定地址，返回一个可用的 Sink
// 或者错误。对应 spec 中的 "Connect function" 外部接口。实现方负责真正的
// 拨号（TCP、gRPC、TLS 等），本包只决定"何时对哪个地址调用它"。
type ConnectFunc[T any] func(ctx context.Context, addr string) (Sink[T], error)
