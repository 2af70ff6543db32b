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
	"crypto/tls"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// DialerOptions 是 Dialer 的配置：TLS、超时、保活、拦截器链，只是从
// "一个连接池共用一份 dial option"收窄成"每次 Connect 调用都用这份
// option 拨一个新地址"。
type DialerOptions struct {
	DialTimeout time.Duration
	TLSConfig   *tls.Config
	KeepAlive   *keepalive.ClientParameters

	UnaryInterceptors  []grpc.UnaryClientInterceptor
	StreamInterceptors []grpc.StreamClientInterceptor

	// HealthCheckService 记录一个健康检查服务名。Dialer 和 healthSink 都不
	// 读取它：每次 Watch 检查的服务名取自调用方传入的请求的 Service 字段
	// （空字符串表示整个服务器的总体健康状态，和 grpc_health_v1 的约定一致）。
	HealthCheckService string
}

// DefaultDialerOptions 返回一组开箱可用的默认值。
func DefaultDialerOptions() *DialerOptions {
	return &DialerOptions{
		DialTimeout: 5 * time.Second,
		KeepAlive: &keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		},
	}
}

// DialerOption 是 DialerOptions 的函数式选项。
type DialerOption func(*DialerOptions)

// WithDialTimeout 设置 DialerOptions.DialTimeout。Dialer.Connect 不读取这个
// 值，拨号过程不受它限制。
func WithDialTimeout(d time.Duration) DialerOption {
	return func(o *DialerOptions) { o.DialTimeout = d }
}

// WithTLS 设置 TLS 配置；不调用则使用不安全传输。
func WithTLS(cfg *tls.Config) DialerOption {
	return func(o *DialerOptions) { o.TLSConfig = cfg }
}

// WithKeepAlive 设置保活参数。
func WithKeepAlive(p *keepalive.ClientParameters) DialerOption {
	return func(o *DialerOptions) { o.KeepAlive = p }
}

// WithUnaryInterceptor 追加一个一元客户端拦截器。
func WithUnaryInterceptor(i grpc.UnaryClientInterceptor) DialerOption {
	return func(o *DialerOptions) { o.UnaryInterceptors = append(o.UnaryInterceptors, i) }
}

// WithStreamInterceptor 追加一个流式客户端拦截器。
func WithStreamInterceptor(i grpc.StreamClientInterceptor) DialerOption {
	return func(o *DialerOptions) { o.StreamInterceptors = append(o.StreamInterceptors, i) }
}

// WithHealthCheckService 设置 DialerOptions.HealthCheckService；Watch 请求
// 不使用这个值，见该字段的说明。
func WithHealthCheckService(name string) DialerOption {
	return func(o *DialerOptions) { o.HealthCheckService = name }
}
