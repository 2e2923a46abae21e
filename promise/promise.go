// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package promise implements the Promise/Future layer (component C): a
// write-once completion cell with chained callbacks, built on an atomic
// completion flag plus a mutex-guarded awaiter slice rather than a
// hand-rolled channel-of-one design.
package promise

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/loopwire/loopwire/log"
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/metrics"
)

type result[T any] struct {
	val T
	err error
}

// Promise is a write-once cell holding either a success value, an error, or
// pending state with a list of awaiter callbacks.
type Promise[T any] struct {
	id        string
	completed atomic.Bool

	mu       sync.Mutex
	result   result[T]
	awaiters []func(T, error)
}

// New creates a pending Promise, tagged with a random identity so its
// Future can be told apart from others of the same type in logs when many
// are in flight concurrently.
func New[T any]() *Promise[T] {
	return &Promise[T]{id: uuid.NewString()}
}

// Future returns the read handle for this promise.
func (p *Promise[T]) Future() *Future[T] {
	return (*Future[T])(p)
}

// Complete resolves the promise with a success value. Only the first call
// to Complete or Fail on a given promise has an observable effect; later
// calls are silently dropped.
func (p *Promise[T]) Complete(v T) {
	p.finish(v, nil)
}

// Fail resolves the promise with an error.
func (p *Promise[T]) Fail(err error) {
	var zero T
	p.finish(zero, err)
}

// CompleteOnNextTick schedules Complete(v) to run on worker's own goroutine
// during its next wakeup. This is the sanctioned way for a thread outside
// worker's loop to complete a promise whose awaiters live on that loop.
func (p *Promise[T]) CompleteOnNextTick(v T, worker *loop.Loop) {
	worker.NextTick(func() { p.Complete(v) })
}

// FailOnNextTick is CompleteOnNextTick's failure-path counterpart.
func (p *Promise[T]) FailOnNextTick(err error, worker *loop.Loop) {
	worker.NextTick(func() { p.Fail(err) })
}

func (p *Promise[T]) finish(v T, err error) {
	if !p.completed.CAS(false, true) {
		metrics.Add(metrics.PromiseAlreadyCompleted, 1)
		log.Debugf("promise %s: ignoring completion after it already resolved", p.id)
		return
	}
	p.mu.Lock()
	p.result = result[T]{val: v, err: err}
	awaiters := p.awaiters
	p.awaiters = nil
	p.mu.Unlock()
	metrics.Add(metrics.PromiseCompletions, 1)
	for _, a := range awaiters {
		a(v, err)
	}
}

// Future is the read handle of a Promise.
type Future[T any] Promise[T]

func (f *Future[T]) promise() *Promise[T] {
	return (*Promise[T])(f)
}

// String returns the future's identity tag, for disambiguating concurrent
// awaits in debug logging.
func (f *Future[T]) String() string {
	return f.id
}

// addAwaiter registers cb to run once the future completes. If it has
// already completed, cb fires synchronously on the calling goroutine.
func (f *Future[T]) addAwaiter(cb func(T, error)) {
	p := f.promise()
	p.mu.Lock()
	if p.completed.Load() {
		v, err := p.result.val, p.result.err
		p.mu.Unlock()
		cb(v, err)
		return
	}
	p.awaiters = append(p.awaiters, cb)
	p.mu.Unlock()
}

// Do runs cb with the success value, if and when the future succeeds.
// Returns self for chaining.
func (f *Future[T]) Do(cb func(T)) *Future[T] {
	f.addAwaiter(func(v T, err error) {
		if err == nil {
			cb(v)
		}
	})
	return f
}

// Catch runs cb with the error, if and when the future fails. Returns self
// for chaining.
func (f *Future[T]) Catch(cb func(error)) *Future[T] {
	f.addAwaiter(func(_ T, err error) {
		if err != nil {
			cb(err)
		}
	})
	return f
}

// Always runs cb on either outcome. Returns self for chaining.
func (f *Future[T]) Always(cb func(T, error)) *Future[T] {
	f.addAwaiter(cb)
	return f
}

// Transform replaces a successful value with v, propagating failure
// unchanged.
func (f *Future[T]) Transform(v T) *Future[T] {
	np := New[T]()
	f.addAwaiter(func(_ T, err error) {
		if err != nil {
			np.Fail(err)
			return
		}
		np.Complete(v)
	})
	return np.Future()
}

// BlockingAwait blocks the calling goroutine until the future completes or
// timeout elapses (timeout <= 0 waits indefinitely). Testing only: it is
// thread-hostile inside an event loop's own goroutine, see Await.
func (f *Future[T]) BlockingAwait(timeout time.Duration) (T, error) {
	done := make(chan struct{})
	var v T
	var err error
	f.addAwaiter(func(rv T, rerr error) {
		v, err = rv, rerr
		close(done)
	})
	if timeout <= 0 {
		<-done
		return v, err
	}
	select {
	case <-done:
		return v, err
	case <-time.After(timeout):
		metrics.Add(metrics.FutureTimeouts, 1)
		var zero T
		return zero, ErrTimeout
	}
}

// Await cooperatively drives worker's Run loop until the future completes,
// so a worker goroutine can wait on a future without blocking a whole OS
// thread behind a semaphore.
func (f *Future[T]) Await(worker *loop.Loop) (T, error) {
	done := make(chan struct{})
	var v T
	var err error
	f.addAwaiter(func(rv T, rerr error) {
		v, err = rv, rerr
		close(done)
	})
	for {
		select {
		case <-done:
			return v, err
		default:
		}
		if runErr := worker.Run(10); runErr != nil {
			return v, runErr
		}
	}
}
