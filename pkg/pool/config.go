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

	"golang.org/x/time/rate"

	"github.com/stones-hub/taurus-pro-pool/pkg/validate"
)

// Config 是多路复用器的配置，通过 Option 函数式选项组装。
//
// 结构体标签是给 pkg/validate 用的：Multiplexer 在启动前会校验一遍，配置
// 不合法时直接返回错误，而不是留到运行时才暴露成诡异的行为。
type Config struct {
	// ConnLimitPerAddress 每个地址允许的最大并发连接数（含正在连接中的）。
	ConnLimitPerAddress int `validate:"required,gte=1"`

	// Lazy 为 true 时只在有请求排队且没有就绪连接时才发起连接；为 false 时
	// 每个已知地址都会被立刻连到 ConnLimitPerAddress 上限（饥饿式 eager）。
	Lazy bool

	// ReconnectTimeout 定义随机化退避窗口 [t/2, 3t/2]（spec §6）。
	ReconnectTimeout time.Duration `validate:"required,gt=0"`

	// QueueSize 是 intake 队列的容量；0 表示 intake 不做缓冲，只剩 Multiplexer
	// 手里正在投递的那一个请求。
	QueueSize int `validate:"gte=0"`

	// ConnectLimiter 是可选的全局连接尝试限速器，防止地址集合剧烈抖动时
	// 同一时刻对大量地址发起连接风暴。nil 表示不限速。
	ConnectLimiter *rate.Limiter
}

// DefaultConfig 返回 spec §6 规定的默认值。
func DefaultConfig() *Config {
	return &Config{
		ConnLimitPerAddress: 1,
		Lazy:                true,
		ReconnectTimeout:    100 * time.Millisecond,
		QueueSize:           100,
	}
}

// Option 是配置的函数式选项。
type Option func(*Config)

// NewConfig 在 DefaultConfig 的基础上依次应用每个 Option，和
// grpcconn.NewDialer(opts ...DialerOption) 同样的组装方式（先有默认值，
// 选项只覆盖调用方关心的字段）。
func NewConfig(opts ...Option) *Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithConnLimit 设置每个地址的最大连接数。
func WithConnLimit(limit int) Option {
	return func(c *Config) { c.ConnLimitPerAddress = limit }
}

// WithLazy 设置是否惰性连接。
func WithLazy(lazy bool) Option {
	return func(c *Config) { c.Lazy = lazy }
}

// WithReconnectTimeout 设置重连退避的基准时长。
func WithReconnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ReconnectTimeout = d }
}

// WithQueueSize 设置 intake 队列容量。
func WithQueueSize(n int) Option {
	return func(c *Config) { c.QueueSize = n }
}

// WithConnectLimiter 设置全局连接尝试限速器。
func WithConnectLimiter(l *rate.Limiter) Option {
	return func(c *Config) { c.ConnectLimiter = l }
}

// ValidateConfig 校验一份 Config，复用 pkg/validate 的中文错误消息。
func ValidateConfig(c *Config) error {
	return validate.ValidateStruct(c)
}

// reconnectWindowMs 把 ReconnectTimeout 换算成毫秒的 [min, max] 随机化退避窗口，
// 和 tk-pool 原始实现里 reconn_ms/2, reconn_ms*3/2 的算法一致。
func reconnectWindowMs(d time.Duration) (minMs, maxMs int64) {
	ms := d.Milliseconds()
	return ms / 2, ms * 3 / 2
}
