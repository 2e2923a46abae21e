// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package loop

import (
	"fmt"
	"sync/atomic"
)

// Pool is the "pool of worker threads" of the concurrency model: one Loop
// per goroutine, picked round-robin via a simple atomic counter-mod-N
// index, implemented directly over *Loop rather than shared generic code
// (so it can carry Loop-specific lifecycle, e.g. RunLoop per goroutine).
type Pool struct {
	loops    []*Loop
	accepted uint64
}

// NewPool creates n Loops labeled "<label>-0".."<label>-n-1" and starts each
// one's RunLoop(timeoutMsec) on its own goroutine. opts are forwarded to
// every Loop's New call, so e.g. WithMaxEvents applies pool-wide.
func NewPool(label string, n int, timeoutMsec int, opts ...Option) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("loop: pool size must be positive, got %d", n)
	}
	p := &Pool{loops: make([]*Loop, 0, n)}
	for i := 0; i < n; i++ {
		l, err := New(fmt.Sprintf("%s-%d", label, i), opts...)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.loops = append(p.loops, l)
		go func(l *Loop) {
			_ = l.RunLoop(timeoutMsec)
		}(l)
	}
	return p, nil
}

// Pick returns the next Loop in round-robin order.
func (p *Pool) Pick() *Loop {
	idx := atomic.AddUint64(&p.accepted, 1) % uint64(len(p.loops))
	return p.loops[idx]
}

// Len returns the number of loops in the pool.
func (p *Pool) Len() int {
	return len(p.loops)
}

// Iterate invokes f for every loop in the pool, stopping early if f returns
// false.
func (p *Pool) Iterate(f func(int, *Loop) bool) {
	for i, l := range p.loops {
		if !f(i, l) {
			return
		}
	}
}

// Close closes every loop in the pool.
func (p *Pool) Close() error {
	var firstErr error
	for _, l := range p.loops {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
