// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package stream implements the Stream Protocol (component D): a
// back-pressured pipeline of stages wired together by a small type-erased
// edge carrying closures for the four input events and two connection
// events, rather than a deep generic interface hierarchy — the same
// closure-carrying-struct style as poller.Desc's OnRead/OnWrite/OnHup.
package stream

// MaxDemand is the saturation ceiling for outstanding demand, giving
// request(MaxDemand) unbounded semantics.
const MaxDemand uint64 = ^uint64(0)

// AddDemand adds b to a, saturating at MaxDemand instead of overflowing.
func AddDemand(a, b uint64) uint64 {
	if b > MaxDemand-a {
		return MaxDemand
	}
	return a + b
}

// Edge is the downstream-facing handle an upstream stage delivers its four
// input events through. A nil field means the stage does not care about
// that event.
type Edge struct {
	// OnConnect is delivered exactly once, before any other event, with
	// the Upstream handle this edge uses to pull.
	OnConnect func(up Upstream)
	// OnNext is delivered at most `requested` times since the last Request.
	OnNext func(item interface{})
	// OnError is terminal: no further input events follow it.
	OnError func(err error)
	// OnClose is terminal (successful): no further input events follow it.
	OnClose func()
}

// Upstream is the upstream-facing handle a downstream stage drives demand
// and cancellation through.
type Upstream struct {
	// Request cumulatively increases demand; implementations saturate at
	// MaxDemand rather than overflow.
	Request func(n uint64)
	// Cancel is idempotent: upstream must release resources, and repeat
	// calls are no-ops.
	Cancel func()
}

// OutputStream is implemented by anything that can be connected to a
// downstream Edge. Connect must deliver downstream.OnConnect exactly once.
type OutputStream interface {
	Connect(downstream Edge)
}

// OutputStreamFunc adapts a plain function to an OutputStream.
type OutputStreamFunc func(downstream Edge)

// Connect implements OutputStream.
func (f OutputStreamFunc) Connect(downstream Edge) {
	f(downstream)
}
