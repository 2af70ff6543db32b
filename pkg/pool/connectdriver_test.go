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

func TestConnectDriverSuccess(t *testing.T) {
	results := make(chan connectResult[int], 1)
	sink := newFakeSink[int]()
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		return sink, nil
	}

	spawnConnectDriver[int](context.Background(), "addr", connect, results)

	select {
	case res := <-results:
		if res.err != nil || res.aborted || res.sink != sink {
			t.Fatalf("unexpected result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect result")
	}
}

func TestConnectDriverFailure(t *testing.T) {
	results := make(chan connectResult[int], 1)
	wantErr := errors.New("dial failed")
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		return nil, wantErr
	}

	spawnConnectDriver[int](context.Background(), "addr", connect, results)

	select {
	case res := <-results:
		if res.err != wantErr || res.aborted {
			t.Fatalf("unexpected result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect result")
	}
}

func TestConnectDriverAbort(t *testing.T) {
	results := make(chan connectResult[int], 1)
	unblock := make(chan struct{})
	connect := func(ctx context.Context, addr string) (Sink[int], error) {
		<-unblock
		return newFakeSink[int](), nil
	}

	d := spawnConnectDriver[int](context.Background(), "addr", connect, results)
	d.Abort()
	close(unblock)

	select {
	case res := <-results:
		if !res.aborted {
			t.Fatalf("expected aborted result, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect result")
	}
}
