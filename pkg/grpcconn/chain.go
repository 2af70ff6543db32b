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
)

// ChainUnaryClient 把多个一元客户端拦截器按声明顺序串成一个，思路和服务端
// 拦截器的串联一致，只是换到了客户端的 invoker 链上。
func ChainUnaryClient(interceptors ...grpc.UnaryClientInterceptor) grpc.UnaryClientInterceptor {
	switch len(interceptors) {
	case 0:
		return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		}
	case 1:
		return interceptors[0]
	}

	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		chain := buildUnaryChain(interceptors, method, invoker)
		return chain(ctx, method, req, reply, cc, opts...)
	}
}

func buildUnaryChain(interceptors []grpc.UnaryClientInterceptor, method string, final grpc.UnaryInvoker) grpc.UnaryInvoker {
	if len(interceptors) == 0 {
		return final
	}
	inner := buildUnaryChain(interceptors[1:], method, final)
	cur := interceptors[0]
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return cur(ctx, method, req, reply, cc, inner, opts...)
	}
}

// ChainStreamClient 把多个流式客户端拦截器按声明顺序串成一个。
func ChainStreamClient(interceptors ...grpc.StreamClientInterceptor) grpc.StreamClientInterceptor {
	switch len(interceptors) {
	case 0:
		return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			return streamer(ctx, desc, cc, method, opts...)
		}
	case 1:
		return interceptors[0]
	}

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		chain := buildStreamChain(interceptors, streamer)
		return chain(ctx, desc, cc, method, opts...)
	}
}

func buildStreamChain(interceptors []grpc.StreamClientInterceptor, final grpc.Streamer) grpc.Streamer {
	if len(interceptors) == 0 {
		return final
	}
	inner := buildStreamChain(interceptors[1:], final)
	cur := interceptors[0]
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return cur(ctx, desc, cc, method, inner, opts...)
	}
}
