// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package promise

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// Map eagerly transforms a successful T into a U, propagating failure
// (including a panic recovered from fn) unchanged. It is a free function,
// not a method, because Go forbids a method from introducing a new type
// parameter.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	np := New[U]()
	f.Always(func(v T, err error) {
		if err != nil {
			np.Fail(err)
			return
		}
		u, mapErr := mapCall(fn, v)
		if mapErr != nil {
			np.Fail(mapErr)
			return
		}
		np.Complete(u)
	})
	return np.Future()
}

func mapCall[T, U any](fn func(T) (U, error), v T) (u U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toError(r)
		}
	}()
	return fn(v)
}

// FlatMap chains a successful T into another future, propagating failure
// (of either the original or the chained future) unchanged.
func FlatMap[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	np := New[U]()
	f.Always(func(v T, err error) {
		if err != nil {
			np.Fail(err)
			return
		}
		fn(v).Always(func(u U, ferr error) {
			if ferr != nil {
				np.Fail(ferr)
				return
			}
			np.Complete(u)
		})
	})
	return np.Future()
}

// Flatten resolves when every future in fs completes, preserving input
// order. On the first error, the combined future fails immediately and
// later successes are discarded.
func Flatten[T any](fs []*Future[T]) *Future[[]T] {
	np := New[[]T]()
	if len(fs) == 0 {
		np.Complete(nil)
		return np.Future()
	}
	results := make([]T, len(fs))
	var mu sync.Mutex
	remaining := atomic.NewInt64(int64(len(fs)))
	failed := atomic.NewBool(false)
	for i, fut := range fs {
		i := i
		fut.Always(func(v T, err error) {
			if failed.Load() {
				return
			}
			if err != nil {
				if failed.CAS(false, true) {
					np.Fail(err)
				}
				return
			}
			mu.Lock()
			results[i] = v
			mu.Unlock()
			if remaining.Dec() == 0 && !failed.Load() {
				np.Complete(results)
			}
		})
	}
	return np.Future()
}

// SyncFlatten drives lazy futures in order: factories[i+1] is not invoked
// until factories[i]'s future completes. On the first error, the combined
// future fails and remaining factories are never invoked.
func SyncFlatten[T any](factories []func() *Future[T]) *Future[[]T] {
	np := New[[]T]()
	results := make([]T, len(factories))
	var step func(i int)
	step = func(i int) {
		if i >= len(factories) {
			np.Complete(results)
			return
		}
		factories[i]().Always(func(v T, err error) {
			if err != nil {
				np.Fail(err)
				return
			}
			results[i] = v
			step(i + 1)
		})
	}
	step(0)
	return np.Future()
}
