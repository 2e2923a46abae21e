// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package socket

// options holds the ring dimensions a Source/Duplex is built with.
type options struct {
	ringSize int
	bufSize  int
}

func defaultOptions() options {
	return options{ringSize: DefaultRingSize, bufSize: DefaultBufferSize}
}

// Option configures a Source/Duplex's ring at construction time.
type Option func(*options)

// WithRingSize overrides the number of buffers in the ring (default
// DefaultRingSize). Values <= 0 are ignored.
func WithRingSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.ringSize = n
		}
	}
}

// WithBufferSize overrides the size of each ring buffer in bytes (default
// DefaultBufferSize). Values <= 0 are ignored.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufSize = n
		}
	}
}
