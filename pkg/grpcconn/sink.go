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

// Author: yelei
// Email: 61647649@qq.com
// Date: 2025-06-13

package grpcconn

import (
	"context"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// healthSink 把一个 *grpc.ClientConn 的健康检查流包装成
// pool.Sink[*grpc_health_v1.HealthCheckRequest]。它不是一个通用的 RPC
// 客户端：每次 TrySend 都重新发起一次 Watch，把上一次的流关掉，模拟
// "一个有序的、单项缓冲的请求接收端"这件事在健康检查语义下最自然的
// 近似 —— 具体业务协议应当实现自己的 pool.Sink，这里只是一个可以直接
// 跑起来的参考实现。
type healthSink struct {
	cc     *grpc.ClientConn
	client grpc_health_v1.HealthClient

	streamCancel context.CancelFunc
	readyCh      chan struct{}

	lastErr atomic.Value // error
	closed  atomic.Bool
}

func newHealthSink(cc *grpc.ClientConn) *healthSink {
	return &healthSink{
		cc:      cc,
		client:  grpc_health_v1.NewHealthClient(cc),
		readyCh: make(chan struct{}, 1),
	}
}

// TrySend 发起一次新的 Watch 调用，service 取自请求的 Service 字段。
// 健康检查流的建立是一次异步的客户端流式调用，不会阻塞到收到第一个
// 响应为止，所以这里总是立刻返回 ok=true —— 背压（ok=false）这条路径
// 留给确实需要排队等待底层连接可写的 Sink 实现。
func (s *healthSink) TrySend(ctx context.Context, item *grpc_health_v1.HealthCheckRequest) (bool, error) {
	if s.streamCancel != nil {
		s.streamCancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.client.Watch(streamCtx, item)
	if err != nil {
		cancel()
		return false, err
	}
	s.streamCancel = cancel

	go s.drain(stream)

	return true, nil
}

// drain 持续读取 Watch 响应，把每一个响应都变成一次 Ready() 的唤醒信号；
// 真正的响应内容由调用方通过自己的业务层观察连接状态，这里只关心
// "这个 sink 还活着、还能继续工作"这一件事。
func (s *healthSink) drain(stream grpc_health_v1.Health_WatchClient) {
	for {
		_, err := stream.Recv()
		if err != nil {
			s.lastErr.Store(err)
			return
		}
		select {
		case s.readyCh <- struct{}{}:
		default:
		}
	}
}

// PollFlush 对 Watch 流来说没有额外需要冲刷的缓冲数据；唯一需要报告的
// 是上一次 drain 发现的流错误。
func (s *healthSink) PollFlush(ctx context.Context) (bool, error) {
	if err, ok := s.lastErr.Load().(error); ok && err != nil {
		return false, err
	}
	return true, nil
}

// Ready 返回 drain goroutine 每次收到新响应时发出的唤醒信号。
func (s *healthSink) Ready() <-chan struct{} {
	return s.readyCh
}

// Close 关闭底层的 gRPC 连接。
func (s *healthSink) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.streamCancel != nil {
		s.streamCancel()
	}
	return s.cc.Close()
}
