// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package loop implements the Event Source / Event Loop layer: a thin,
// allocation-light wrapper over the per-OS readiness notifier (epoll/kqueue)
// that adds the suspended/resumed/cancelled state machine, timer/next-tick
// sources, and a round-robin worker pool on top.
package loop

import (
	"sync"
	"sync/atomic"

	"github.com/loopwire/loopwire/internal/poller"
	"github.com/loopwire/loopwire/metrics"
)

// Job is a unit of work queued onto a Loop's own goroutine, e.g. from
// another goroutine or another Loop. It runs during the wakeup that
// delivered it, before the next poll cycle begins.
type Job func() error

// Loop is the Event Loop (component B): one kqueue/epoll handle, a run-depth
// counter guarding against recursive dispatch, and a debug label.
type Loop struct {
	label string
	poller poller.Poller

	runSeq   int32
	guardMu  sync.Mutex
	curGuard func() bool
}

// New creates a Loop with a debug label, opening a fresh kqueue/epoll
// handle. On failure it returns an *Error that matches ErrLoopInit under
// errors.Is and wraps the OS error. By
// default the poller's event buffer is sized poller.DefaultMaxEvents;
// pass WithMaxEvents to override it.
func New(label string, opts ...Option) (*Loop, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p, err := poller.New(false, o.maxEvents)
	if err != nil {
		return nil, newError(KindLoopInit, "create loop "+label, err)
	}
	l := &Loop{label: label, poller: p}
	return l, nil
}

// Label returns the loop's debug name.
func (l *Loop) Label() string {
	return l.label
}

// Run performs at most one poll cycle: it blocks for up to timeoutMsec
// milliseconds (negative blocks indefinitely, zero returns immediately),
// dispatches whatever events the underlying syscall returned, and returns.
// If a nested Run is invoked from within a callback fired during this
// cycle, the remaining events of the cycle are abandoned, per the run-depth
// guard described in the Event Loop dispatch algorithm.
func (l *Loop) Run(timeoutMsec int) error {
	seq := atomic.AddInt32(&l.runSeq, 1)

	l.guardMu.Lock()
	prevGuard := l.curGuard
	guard := func() bool {
		abandoned := atomic.LoadInt32(&l.runSeq) != seq
		if abandoned {
			metrics.Add(metrics.RunDepthAbandon, 1)
		}
		return abandoned
	}
	l.curGuard = guard
	l.guardMu.Unlock()
	l.poller.SetDepthGuard(guard)

	defer func() {
		l.guardMu.Lock()
		l.curGuard = prevGuard
		l.guardMu.Unlock()
		l.poller.SetDepthGuard(prevGuard)
	}()

	if err := l.poller.Poll(timeoutMsec); err != nil {
		return newError(KindIO, "poll", err)
	}
	return nil
}

// RunLoop runs Run(timeoutMsec) forever, resetting the run-depth guard
// before every cycle, until Run returns an error.
func (l *Loop) RunLoop(timeoutMsec int) error {
	for {
		if err := l.Run(timeoutMsec); err != nil {
			return err
		}
	}
}

// Trigger enqueues job to run on the loop's own goroutine and wakes a
// blocked Run/RunLoop. This is the only sanctioned way for code outside the
// loop's own goroutine to schedule work on it (see promise's cross-loop
// completion and stream's bounded-recursion yield).
func (l *Loop) Trigger(job Job) error {
	metrics.Add(metrics.NextTickRuns, 1)
	return l.poller.Trigger(poller.Job(job))
}

// NextTick schedules fn to run on the loop's own goroutine during the next
// wakeup, ignoring errors (fn has no failure mode of its own).
func (l *Loop) NextTick(fn func()) {
	_ = l.Trigger(func() error {
		fn()
		return nil
	})
}

// Close closes the loop's kernel notifier handle. The loop must not be used
// afterward.
func (l *Loop) Close() error {
	return l.poller.Close()
}
