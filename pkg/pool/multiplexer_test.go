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
	"errors"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

func waitStatsLive(t *testing.T, mux *Multiplexer[int], n int) Stats {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		s, err := mux.Stats(ctx)
		cancel()
		if err == nil && s.Live == n {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for Live == %d", n)
	return Stats{}
}

func TestMultiplexerLazyConnectAndDeliver(t *testing.T) {
	sinks := make(chan *fakeSink[int], 4)
	notify := make(chan int, 4)
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		s := newFakeSink[int]()
		s.notify = notify
		sinks <- s
		return s, nil
	}

	addrCh := make(chan Address, 1)
	addrCh <- Address{"a"}

	cfg := DefaultConfig()
	cfg.QueueSize = 4
	q, mux, err := New[int](cfg, addrCh, connect, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := q.Send(context.Background(), 42); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-sinks:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a connection to be established")
	}

	select {
	case v := <-notify:
		if v != 42 {
			t.Fatalf("expected item 42 to be delivered, got %d", v)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for the item to be delivered")
	}

	_ = mux
}

func TestMultiplexerRoundRobinsAcrossLiveConnections(t *testing.T) {
	notify := make(chan int, 16)
	sinks := make(chan *fakeSink[int], 2)
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		s := newFakeSink[int]()
		s.notify = notify
		sinks <- s
		return s, nil
	}

	addrCh := make(chan Address, 1)
	addrCh <- Address{"a", "b"}

	cfg := DefaultConfig()
	cfg.Lazy = false // eager: both addresses connect immediately
	cfg.QueueSize = 16
	q, mux, err := New[int](cfg, addrCh, connect, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	waitStatsLive(t, mux, 2)

	for i := 0; i < 4; i++ {
		if err := q.Send(context.Background(), i); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}

	got := make(map[int]bool)
	for i := 0; i < 4; i++ {
		select {
		case v := <-notify:
			got[v] = true
		case <-time.After(testTimeout):
			t.Fatalf("timed out waiting for item %d of 4", i)
		}
	}
	for i := 0; i < 4; i++ {
		if !got[i] {
			t.Errorf("item %d was never delivered", i)
		}
	}

	// Both connections are in the ready queue before the first Send, so the
	// four items alternate between them: two each.
	for i := 0; i < 2; i++ {
		s := <-sinks
		if len(s.sent) != 2 {
			t.Errorf("connection %d received %d items, want 2", i, len(s.sent))
		}
	}
}

func TestMultiplexerRetiresConnectionWhenAddressRemoved(t *testing.T) {
	sinks := make(chan *fakeSink[int], 4)
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		s := newFakeSink[int]()
		sinks <- s
		return s, nil
	}

	addrCh := make(chan Address, 2)
	addrCh <- Address{"a"}

	cfg := DefaultConfig()
	cfg.Lazy = false
	q, mux, err := New[int](cfg, addrCh, connect, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer q.Close()

	waitStatsLive(t, mux, 1)
	sink := <-sinks

	addrCh <- Address{} // "a" is no longer resolved

	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) && !sink.closed {
		time.Sleep(5 * time.Millisecond)
	}
	if !sink.closed {
		t.Fatal("expected the sink to be closed once its address left the snapshot")
	}
}

func TestMultiplexerBlacklistsFailingAddress(t *testing.T) {
	wantErr := errors.New("connect refused")
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		return nil, wantErr
	}

	addrCh := make(chan Address, 1)
	addrCh <- Address{"a"}

	metrics := newFakeMetrics()
	cfg := DefaultConfig()
	cfg.QueueSize = 4
	q, _, err := New[int](cfg, addrCh, connect, nil, metrics)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := q.Send(context.Background(), 1); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case addr := <-metrics.blacklistAdd:
		if addr != "a" {
			t.Fatalf("expected addr 'a' to be blacklisted, got %q", addr)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for the failing address to be blacklisted")
	}
}

func TestMultiplexerCloseDrainsAndShutsDown(t *testing.T) {
	sinks := make(chan *fakeSink[int], 4)
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		s := newFakeSink[int]()
		sinks <- s
		return s, nil
	}

	addrCh := make(chan Address, 1)
	addrCh <- Address{"a"}

	metrics := newFakeMetrics()
	cfg := DefaultConfig()
	cfg.Lazy = false
	_, mux, err := New[int](cfg, addrCh, connect, nil, metrics)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	waitStatsLive(t, mux, 1)
	sink := <-sinks

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := mux.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !sink.closed {
		t.Fatal("expected the live connection's sink to be closed")
	}

	select {
	case <-metrics.poolClosed:
	default:
		t.Fatal("expected PoolClosed to have been reported")
	}

	// Close is idempotent.
	if err := mux.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestMultiplexerShutsDownWhenIntakeCloses(t *testing.T) {
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		return newFakeSink[int](), nil
	}

	addrCh := make(chan Address, 1)
	addrCh <- Address{"a"}

	errlog := newFakeErrorLog()
	cfg := DefaultConfig()
	cfg.Lazy = false
	q, mux, err := New[int](cfg, addrCh, connect, errlog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	waitStatsLive(t, mux, 1)
	q.Close()

	select {
	case reason := <-errlog.shuttingDown:
		if reason != RequestStreamClosed {
			t.Fatalf("expected RequestStreamClosed, got %v", reason)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for shutdown notification")
	}

	select {
	case <-mux.doneCh:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for the pool to finish closing")
	}
}
