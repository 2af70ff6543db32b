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

func TestQueueTrySendRespectsCapacity(t *testing.T) {
	q := &Queue[int]{ch: make(chan int, 1), metrics: NoopMetrics{}}

	if ok, err := q.TrySend(1); !ok || err != nil {
		t.Fatalf("expected first TrySend to succeed, got ok=%v err=%v", ok, err)
	}
	if ok, err := q.TrySend(2); ok || err != nil {
		t.Fatalf("expected second TrySend to fail with ok=false, err=nil once the queue is full, got ok=%v err=%v", ok, err)
	}

	if v := <-q.ch; v != 1 {
		t.Fatalf("expected queued value 1, got %d", v)
	}
}

func TestQueueSendBlocksUntilSpaceOrCancel(t *testing.T) {
	q := &Queue[int]{ch: make(chan int, 1), metrics: NoopMetrics{}}
	if _, err := q.TrySend(1); err != nil {
		t.Fatalf("TrySend: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := q.Send(ctx, 2); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestQueueClose(t *testing.T) {
	q := &Queue[int]{ch: make(chan int, 1), metrics: NoopMetrics{}}
	q.Close()

	_, ok := <-q.ch
	if ok {
		t.Fatal("expected channel to be closed")
	}
}

func TestQueueSendAfterCloseReturnsQueueError(t *testing.T) {
	q := &Queue[int]{ch: make(chan int, 1), metrics: NoopMetrics{}}
	q.Close()

	err := q.Send(context.Background(), 7)
	var qerr *QueueError[int]
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueueError[int], got %v (%T)", err, err)
	}
	if qerr.Item != 7 {
		t.Fatalf("expected the item to be returned to the caller, got %d", qerr.Item)
	}
}

func TestQueueTrySendAfterCloseReturnsQueueError(t *testing.T) {
	q := &Queue[int]{ch: make(chan int, 1), metrics: NoopMetrics{}}
	q.Close()

	ok, err := q.TrySend(9)
	if ok {
		t.Fatal("expected TrySend on a closed queue to report ok=false")
	}
	var qerr *QueueError[int]
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueueError[int], got %v (%T)", err, err)
	}
	if qerr.Item != 9 {
		t.Fatalf("expected the item to be returned to the caller, got %d", qerr.Item)
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := &Queue[int]{ch: make(chan int, 1), metrics: NoopMetrics{}}
	q.Close()
	q.Close() // must not panic on double-close
}
