// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

import "github.com/loopwire/loopwire/loop"

// NewChunkingFunc returns a TranslateFunc that re-batches variable-size
// []T inputs into fixed-size []T chunks of length size, the illustrative
// translate-stream of the stream protocol.
func NewChunkingFunc[T any](size int) TranslateFunc {
	var buf []T
	return func(input interface{}) (interface{}, interface{}, TranslateResult) {
		items, _ := input.([]T)
		buf = append(buf, items...)
		if len(buf) < size {
			return nil, nil, Insufficient
		}
		chunk := make([]T, size)
		copy(chunk, buf[:size])
		rest := append([]T(nil), buf[size:]...)
		buf = nil
		if len(rest) == 0 {
			return chunk, nil, Sufficient
		}
		return chunk, rest, Excess
	}
}

// ChunkingStream wires NewChunkingFunc(size) onto upstream via Translate.
func ChunkingStream[T any](upstream OutputStream, worker *loop.Loop, size int) OutputStream {
	return Translate(upstream, worker, NewChunkingFunc[T](size))
}
