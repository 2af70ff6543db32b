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

package main

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/stones-hub/taurus-pro-pool/pkg/grpcconn"
	"github.com/stones-hub/taurus-pro-pool/pkg/grpcconn/interceptor"
	"github.com/stones-hub/taurus-pro-pool/pkg/pool"
	"github.com/stones-hub/taurus-pro-pool/pkg/telemetry"
)

func main() {
	dialer := grpcconn.NewDialer(
		grpcconn.WithDialTimeout(3*time.Second),
		grpcconn.WithUnaryInterceptor(interceptor.TimeoutClientInterceptor(3*time.Second)),
		grpcconn.WithUnaryInterceptor(interceptor.AuthInterceptor("dev-token")),
		grpcconn.WithHealthCheckService(""),
	)

	cfg := pool.NewConfig(
		pool.WithConnLimit(2),
		pool.WithConnectLimiter(rate.NewLimiter(rate.Limit(10), 10)),
	)

	errlog := pool.NewStdLogger(nil)
	metrics := telemetry.NewOtelMetrics(otel.Tracer("taurus-pro-pool"))

	addrCh := make(chan pool.Address, 1)
	addrCh <- pool.Address{"localhost:50051", "localhost:50052"}

	q, mux, err := pool.New[*grpc_health_v1.HealthCheckRequest](cfg, addrCh, dialer.Connect, errlog, metrics)
	if err != nil {
		log.Fatalf("failed to start pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.Send(ctx, &grpc_health_v1.HealthCheckRequest{}); err != nil {
		log.Printf("send failed: %v", err)
	}

	stats, err := mux.Stats(ctx)
	if err == nil {
		log.Printf("pool stats: %+v", stats)
	}

	q.Close()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := mux.Close(closeCtx); err != nil {
		log.Printf("close failed: %v", err)
	}
}
