// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

import (
	"sync"

	"github.com/loopwire/loopwire/promise"
)

// QueueStream is the request/response adapter: Enqueue(output) hands output
// to writer (e.g. a socket sink) and returns a Future resolved with the
// next input received from upstream, pairing outputs with inputs
// strictly in FIFO order (request pipelining).
type QueueStream struct {
	mu       sync.Mutex
	upstream Upstream
	writer   func(output interface{})
	pending  []*promise.Promise[interface{}]
	closed   bool
}

// NewQueueStream subscribes to upstream, requesting one input per Enqueue,
// and routes every Enqueue'd output through writer.
func NewQueueStream(upstream OutputStream, writer func(output interface{})) *QueueStream {
	q := &QueueStream{writer: writer}
	upstream.Connect(Edge{
		OnConnect: func(up Upstream) {
			q.mu.Lock()
			q.upstream = up
			q.mu.Unlock()
		},
		OnNext:  q.onNext,
		OnError: q.onError,
		OnClose: q.onClose,
	})
	return q
}

// Enqueue writes output via the configured writer and returns a Future
// resolved with the next input this QueueStream receives from upstream.
func (q *QueueStream) Enqueue(output interface{}) *promise.Future[interface{}] {
	p := promise.New[interface{}]()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		p.Fail(ErrQueueClosed)
		return p.Future()
	}
	q.pending = append(q.pending, p)
	q.mu.Unlock()
	q.writer(output)
	q.mu.Lock()
	up := q.upstream
	q.mu.Unlock()
	if up.Request != nil {
		up.Request(1)
	}
	return p.Future()
}

// Cancel releases the upstream connection; idempotent.
func (q *QueueStream) Cancel() {
	q.mu.Lock()
	up := q.upstream
	q.mu.Unlock()
	if up.Cancel != nil {
		up.Cancel()
	}
}

func (q *QueueStream) onNext(input interface{}) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	p := q.pending[0]
	q.pending = q.pending[1:]
	q.mu.Unlock()
	p.Complete(input)
}

func (q *QueueStream) onError(err error) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.closed = true
	q.mu.Unlock()
	for _, p := range pending {
		p.Fail(err)
	}
}

func (q *QueueStream) onClose() {
	q.onError(ErrQueueClosed)
}
