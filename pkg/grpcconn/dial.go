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

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/stones-hub/taurus-pro-pool/pkg/pool"
)

// Dialer 是 pkg/pool 的参考 Connect function 实现：给定一个地址，拨一条
// gRPC 连接，并把它的健康检查 Watch 流包装成一个 pool.Sink。拨号选项的
// 组装方式是 TLS 二选一、可选的 keepalive、一元/流式拦截器链。
type Dialer struct {
	opts *DialerOptions
}

// NewDialer 按给定选项组装一个 Dialer。
func NewDialer(opts ...DialerOption) *Dialer {
	o := DefaultDialerOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Dialer{opts: o}
}

func (d *Dialer) dialOptions() []grpc.DialOption {
	opts := []grpc.DialOption{}

	if d.opts.TLSConfig != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(d.opts.TLSConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	if d.opts.KeepAlive != nil {
		opts = append(opts, grpc.WithKeepaliveParams(*d.opts.KeepAlive))
	}

	if len(d.opts.UnaryInterceptors) > 0 {
		opts = append(opts, grpc.WithUnaryInterceptor(ChainUnaryClient(d.opts.UnaryInterceptors...)))
	}
	if len(d.opts.StreamInterceptors) > 0 {
		opts = append(opts, grpc.WithStreamInterceptor(ChainStreamClient(d.opts.StreamInterceptors...)))
	}

	return opts
}

// Connect 实现 pool.ConnectFunc[*grpc_health_v1.HealthCheckRequest]：拨号
// 到 addr，返回一个包着健康检查流的 Sink。ctx 被 Multiplexer 取消时
// （地址被退休）grpc.NewClient 本身不阻塞，真正可能阻塞、需要被 Abort
// 打断的是随后第一次 TrySend 发起的 Watch 调用。
func (d *Dialer) Connect(ctx context.Context, addr string) (pool.Sink[*grpc_health_v1.HealthCheckRequest], error) {
	cc, err := grpc.NewClient(addr, d.dialOptions()...)
	if err != nil {
		return nil, err
	}
	return newHealthSink(cc), nil
}
