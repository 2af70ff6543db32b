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

// Package telemetry 提供一个基于 OpenTelemetry 的 pool.Metrics 实现，
// 把"一次 RPC 一个 span"的约定改成按连接记录 span：connection_attempt 打开
// 一个 pool.connect span，在 connection / connection_error / connection_abort
// 时结束；connection 另开一个 pool.connection span，在 disconnect 时结束。
package telemetry

import (
	"context"
	"crypto/md5"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OtelMetrics 实现 pool.Metrics；Multiplexer 在自己的 goroutine 上同步
// 调用所有方法，但 span 的生命周期跨越多次调用（attempt -> connection ->
// disconnect），所以内部仍然需要一把锁保护 spans 这张表本身，而不是为了
// 保护任何 Multiplexer 的状态。
type OtelMetrics struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string][]connSpan // addr -> 未结束的 span 列表，按 attempt 顺序
}

type connSpan struct {
	ctx     context.Context
	span    trace.Span
	traceID trace.TraceID
	start   time.Time
}

// NewOtelMetrics 用给定的 tracer 构造一个 OtelMetrics。
func NewOtelMetrics(tracer trace.Tracer) *OtelMetrics {
	return &OtelMetrics{
		tracer: tracer,
		spans:  make(map[string][]connSpan),
	}
}

func newTraceID() trace.TraceID {
	hash := md5.Sum([]byte(uuid.New().String()))
	var id trace.TraceID
	copy(id[:], hash[:])
	return id
}

func (m *OtelMetrics) startSpan(addr, name string) connSpan {
	traceID := newTraceID()
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx, span := m.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("rpc.system", "pool"),
		attribute.String("rpc.peer.address", addr),
		attribute.String("rpc.trace_id", traceID.String()),
	))
	return connSpan{ctx: ctx, span: span, traceID: traceID, start: time.Now()}
}

func (m *OtelMetrics) push(addr string, s connSpan) {
	m.mu.Lock()
	m.spans[addr] = append(m.spans[addr], s)
	m.mu.Unlock()
}

// pop 取出 addr 最早挂起的 span（先进先出，匹配 connectDriver/connSlot
// 的先来后到顺序），不存在则返回 ok=false。
func (m *OtelMetrics) pop(addr string) (connSpan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.spans[addr]
	if len(list) == 0 {
		return connSpan{}, false
	}
	s := list[0]
	list = list[1:]
	if len(list) == 0 {
		delete(m.spans, addr)
	} else {
		m.spans[addr] = list
	}
	return s, true
}

func (m *OtelMetrics) ConnectionAttempt(addr string) {
	m.push(addr, m.startSpan(addr, "pool.connect"))
}

func (m *OtelMetrics) Connection(addr string) {
	if s, ok := m.pop(addr); ok {
		s.span.SetAttributes(attribute.String("rpc.status", "connected"))
		s.span.End()
	}
	// 连接真正建立之后的生命周期另起一个 span，生命周期延续到 Disconnect。
	m.push(addr, m.startSpan(addr, "pool.connection"))
}

func (m *OtelMetrics) ConnectionError(addr string) {
	if s, ok := m.pop(addr); ok {
		s.span.SetAttributes(attribute.String("rpc.status", "connect_error"))
		s.span.End()
	}
}

func (m *OtelMetrics) ConnectionAbort(addr string) {
	if s, ok := m.pop(addr); ok {
		s.span.SetAttributes(attribute.String("rpc.status", "aborted"))
		s.span.End()
	}
}

func (m *OtelMetrics) Disconnect(addr string) {
	if s, ok := m.pop(addr); ok {
		s.span.SetAttributes(
			attribute.String("rpc.status", "disconnected"),
			attribute.Int64("rpc.duration_ms", time.Since(s.start).Milliseconds()),
		)
		s.span.End()
	}
}

// event records an instantaneous occurrence as its own zero-duration span,
// for signals that have no natural start/end pair to ride along on.
func (m *OtelMetrics) event(name string, attrs ...attribute.KeyValue) {
	_, span := m.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	span.End()
}

func (m *OtelMetrics) BlacklistAdd(addr string) {
	m.event("pool.blacklist_add", attribute.String("rpc.peer.address", addr))
}

func (m *OtelMetrics) BlacklistRemove(addr string) {
	m.event("pool.blacklist_remove", attribute.String("rpc.peer.address", addr))
}

func (m *OtelMetrics) RequestQueued() {
	m.event("pool.request_queued")
}

func (m *OtelMetrics) RequestForwarded() {
	m.event("pool.request_forwarded")
}

func (m *OtelMetrics) PoolClosed() {
	m.event("pool.closed")
}
