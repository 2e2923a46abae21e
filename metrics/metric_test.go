// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/loopwire/loopwire/metrics"
)

func TestMetrics(t *testing.T) {
	metrics.Add(metrics.SocketReadvCalls, 1)
	assert.Equal(t, uint64(1), metrics.Get(metrics.SocketReadvCalls))
	metrics.Add(metrics.SocketReadvCalls, 1)
	assert.Equal(t, uint64(2), metrics.Get(metrics.SocketReadvCalls))
	metrics.Add(metrics.Max+1, 1)
	metrics.Add(metrics.EpollNoWait, 8)
	metrics.Add(metrics.EpollWait, 9)
	metrics.Add(metrics.EpollEvents, 99)
	metrics.Add(metrics.SocketWritevCalls, 191)
	metrics.Add(metrics.SocketWritevBlocks, 1191)
	metrics.Add(metrics.SocketReadvCalls, 191)
	metrics.Add(metrics.SocketReadvBytes, 1191)
	metrics.Add(metrics.TimerFires, 3)
	metrics.Add(metrics.NextTickRuns, 4)
	metrics.Add(metrics.RunDepthAbandon, 1)
	metrics.Add(metrics.PromiseCompletions, 5)
	metrics.Add(metrics.StreamDemandRequested, 6)
	assert.Equal(t, uint64(0), metrics.Get(metrics.Max+1))
	metrics.ShowMetrics()
	metrics.ShowMetricsOfPeriod(time.Millisecond)
}
