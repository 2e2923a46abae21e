// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

import "fmt"

// MapFunc is a 1-to-1 synchronous transform; a returned error (or a
// recovered panic) becomes a downstream error event.
type MapFunc func(item interface{}) (interface{}, error)

// Map applies f to every item passing through, 1-to-1 and synchronously.
// Demand passes straight through unchanged, since it produces exactly one
// output per input.
func Map(upstream OutputStream, f MapFunc) OutputStream {
	return OutputStreamFunc(func(downstream Edge) {
		failed := false
		upstream.Connect(Edge{
			OnConnect: downstream.OnConnect,
			OnNext: func(item interface{}) {
				if failed {
					return
				}
				out, err := safeCall(f, item)
				if err != nil {
					failed = true
					if downstream.OnError != nil {
						downstream.OnError(err)
					}
					return
				}
				if downstream.OnNext != nil {
					downstream.OnNext(out)
				}
			},
			OnError: downstream.OnError,
			OnClose: downstream.OnClose,
		})
	})
}

func safeCall(f MapFunc, item interface{}) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("map: panic: %v", r)
			}
		}
	}()
	return f(item)
}
