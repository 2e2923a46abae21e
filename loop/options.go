// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package loop

import "github.com/loopwire/loopwire/internal/poller"

// options holds the poller dimensions a Loop is created with.
type options struct {
	maxEvents int
}

func defaultOptions() options {
	return options{maxEvents: poller.DefaultMaxEvents}
}

// Option configures a Loop at construction time.
type Option func(*options)

// WithMaxEvents overrides how many events a single underlying
// epoll_wait/kevent call on this Loop's poller can return (default
// poller.DefaultMaxEvents). Values <= 0 are ignored.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}
