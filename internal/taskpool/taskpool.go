// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package taskpool offloads user callbacks off the hot I/O goroutine onto a
// shared github.com/panjf2000/ants/v2 goroutine pool. Its caller is
// tcp.Listener, which runs each accepted connection's handler through
// Submit rather than inline on the accept goroutine.
package taskpool

import (
	"github.com/panjf2000/ants/v2"

	"github.com/loopwire/loopwire/metrics"
)

// unboundedSize tells ants to treat the pool as unbounded (capped only by
// runtime limits).
const unboundedSize = 0

var pool, _ = ants.NewPool(unboundedSize)

// Submit runs task on the shared pool, off whatever goroutine called
// Submit. Errors from a full, non-blocking pool are swallowed and task
// runs synchronously instead, so a saturated pool degrades rather than
// drops work.
func Submit(task func()) {
	metrics.Add(metrics.TaskAssigned, 1)
	if err := pool.Submit(task); err != nil {
		task()
	}
}

// Release frees the pool's goroutines; intended for tests and clean
// shutdown paths, not ordinary operation.
func Release() {
	pool.Release()
}
