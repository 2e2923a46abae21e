// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package socket

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/loopwire/loopwire/internal/locker"
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/metrics"
	"github.com/loopwire/loopwire/stream"
)

// Sink adapts downstream-produced byte buffers to an OS-writable
// Descriptor (component E, write half). Its write source starts suspended
// and is resumed only while there's something to write, per spec §4.5,
// so an idle connection never spins the loop on writable-readiness.
type Sink struct {
	mu locker.Locker

	conn    Descriptor
	src     *loop.Source
	upWrite func(n uint64)
	upCancel func()

	pending []byte
	closed  bool
}

// NewSink creates a Socket Sink writing to conn on worker. The returned
// value implements stream.Edge via Edge(); connecting it to an upstream
// OutputStream makes it that upstream's consumer.
func NewSink(worker *loop.Loop, conn Descriptor) *Sink {
	k := &Sink{conn: conn}
	k.src = loop.NewWriteSource(worker, conn.FD(), k.onWritable)
	metrics.Add(metrics.SocketConnsCreate, 1)
	return k
}

// Edge returns the stream.Edge an upstream OutputStream should Connect to.
func (k *Sink) Edge() stream.Edge {
	return stream.Edge{
		OnConnect: k.onConnect,
		OnNext:    k.onNext,
		OnError:   func(err error) { k.close() },
		OnClose:   k.close,
	}
}

func (k *Sink) onConnect(up stream.Upstream) {
	k.mu.Lock()
	k.upWrite = up.Request
	k.upCancel = up.Cancel
	k.mu.Unlock()
	_ = k.src.Resume()
}

// onNext stores buf as pending_input. Calling it while a previous buffer
// is still pending is a StreamContract violation (spec §4.5's implicit
// assertion): debug builds would assert; here it surfaces as an error
// delivered nowhere (there is no downstream of a Sink) and is dropped,
// the release-build behavior spec §7 calls for non-fatal contract breaks.
func (k *Sink) onNext(buf interface{}) {
	k.mu.Lock()
	if k.pending != nil {
		k.mu.Unlock()
		metrics.Add(metrics.StreamErrors, 1)
		return
	}
	b, ok := buf.([]byte)
	if !ok {
		k.mu.Unlock()
		metrics.Add(metrics.StreamErrors, 1)
		return
	}
	k.pending = b
	k.mu.Unlock()
	_ = k.src.Resume()
}

func (k *Sink) close() {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return
	}
	k.closed = true
	cancel := k.upCancel
	k.mu.Unlock()

	_ = k.src.Cancel()
	_ = k.conn.Close()
	if cancel != nil {
		cancel()
	}
	metrics.Add(metrics.SocketConnsClose, 1)
}

// onWritable implements spec §4.5's writable callback, step for step.
func (k *Sink) onWritable(isEOF bool) {
	k.mu.Lock()
	closed := k.closed
	k.mu.Unlock()
	if closed {
		return
	}
	if isEOF {
		k.close()
		return
	}

	k.mu.Lock()
	if k.pending == nil {
		request := k.upWrite
		k.mu.Unlock()
		_ = k.src.Suspend()
		if request != nil {
			request(1)
		}
		return
	}
	k.mu.Unlock()

	if !k.conn.IsPrepared() {
		if err := k.conn.Prepare(); err != nil {
			k.close()
			return
		}
	}

	k.mu.Lock()
	buf := k.pending
	k.mu.Unlock()

	n, err := k.conn.Write(buf)
	metrics.Add(metrics.SocketWritevCalls, 1)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			metrics.Add(metrics.SocketWritevBlocks, 1)
			return // stays resumed, retried on next writable wakeup
		}
		if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET) {
			k.close()
			return
		}
		k.close()
		return
	}
	metrics.Add(metrics.SocketWritevBytes, uint64(n))

	if n >= len(buf) {
		k.mu.Lock()
		k.pending = nil
		request := k.upWrite
		k.mu.Unlock()
		_ = k.src.Suspend()
		if request != nil {
			request(1)
		}
		return
	}
	// Partial write: keep the remainder pending and stay resumed.
	k.mu.Lock()
	k.pending = buf[n:]
	k.mu.Unlock()
}
