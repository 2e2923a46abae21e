// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

// Split is a tee: it invokes f with each item as a side effect, then passes
// the item through unchanged.
func Split(upstream OutputStream, f func(item interface{})) OutputStream {
	return OutputStreamFunc(func(downstream Edge) {
		upstream.Connect(Edge{
			OnConnect: downstream.OnConnect,
			OnNext: func(item interface{}) {
				f(item)
				if downstream.OnNext != nil {
					downstream.OnNext(item)
				}
			},
			OnError: downstream.OnError,
			OnClose: downstream.OnClose,
		})
	})
}
