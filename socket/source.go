// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package socket

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/loopwire/loopwire/internal/cache/mcache"
	"github.com/loopwire/loopwire/internal/locker"
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/metrics"
	"github.com/loopwire/loopwire/stream"
)

// DefaultRingSize and DefaultBufferSize are the ring dimensions spec §6's
// environment section calls out by default: 4 buffers of 4096 bytes.
const (
	DefaultRingSize   = 4
	DefaultBufferSize = 4096
)

// Source adapts an OS-readable Descriptor to a demand-driven stream of
// byte buffers (component E, read half). Buffers are allocated once at
// construction from internal/cache/mcache, a power-of-two byte-slice
// pool, and recycled between a writable pool (free for the next read
// syscall) and a readable queue (filled, awaiting delivery), exactly as
// spec §4.4 describes the ring's two roles for the same storage.
type Source struct {
	// mu guards the ring bookkeeping below. Critical sections here are a
	// handful of slice/index operations, short enough that a spinlock
	// beats a futex-backed mutex under the read-loop's contention pattern.
	mu locker.Locker

	conn     Descriptor
	src      *loop.Source
	bufSize  int
	bufs     [][]byte
	writable []int // indices into bufs free for the next read
	readable []readableView

	leased        []int // slots delivered downstream, awaiting request() to recycle
	demand        uint64
	socketIsEmpty bool
	closed        bool

	downstream stream.Edge
}

type readableView struct {
	slot int
	n    int
}

// NewSource creates a Socket Source reading from conn on worker, with a
// ring sized by opts (DefaultRingSize buffers of DefaultBufferSize bytes
// with no options given; see WithRingSize/WithBufferSize). The returned
// value implements stream.OutputStream; Connect wires it to a downstream
// pipeline, delivers OnConnect (where downstream may Request), and then
// resumes the read source.
func NewSource(worker *loop.Loop, conn Descriptor, opts ...Option) *Source {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Source{conn: conn, bufSize: o.bufSize}
	s.bufs = make([][]byte, o.ringSize)
	s.writable = make([]int, 0, o.ringSize)
	for i := 0; i < o.ringSize; i++ {
		s.bufs[i] = mcache.Malloc(o.bufSize)
		s.writable = append(s.writable, i)
	}
	s.src = loop.NewReadSource(worker, conn.FD(), s.onReady)
	metrics.Add(metrics.SocketConnsCreate, 1)
	return s
}

// Connect implements stream.OutputStream.
func (s *Source) Connect(downstream stream.Edge) {
	s.mu.Lock()
	s.downstream = downstream
	s.mu.Unlock()
	if downstream.OnConnect != nil {
		downstream.OnConnect(stream.Upstream{Request: s.request, Cancel: s.cancel})
	}
	_ = s.src.Resume()
}

// request implements the back-pressure half of spec §4.4: each request(n)
// both raises demand by n and recycles up to n leased slots back into the
// writable pool, since a downstream asking for more always means it is
// done with (at most) that many previously delivered buffers.
func (s *Source) request(n uint64) {
	s.mu.Lock()
	s.demand = stream.AddDemand(s.demand, n)
	metrics.Add(metrics.StreamDemandRequested, n)
	recycle := n
	for recycle > 0 && len(s.leased) > 0 {
		slot := s.leased[0]
		s.leased = s.leased[1:]
		s.writable = append(s.writable, slot)
		recycle--
	}
	s.mu.Unlock()
	s.update()
}

func (s *Source) cancel() {
	s.Close()
}

// Close tears down the Source without notifying downstream (it is the
// caller, not upstream, initiating the teardown); idempotent.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.src.Cancel()
	_ = s.conn.Close()
	s.freeBufs()
}

func (s *Source) onReady(isEOF bool) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if isEOF {
		s.close()
		return
	}
	s.mu.Lock()
	s.socketIsEmpty = false
	s.mu.Unlock()
	s.update()
}

// update is the heart of the read loop, following spec §4.4 step for step.
func (s *Source) update() {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if s.demand == 0 {
			s.mu.Unlock()
			return
		}
		if len(s.readable) > 0 {
			rv := s.readable[0]
			s.readable = s.readable[1:]
			s.demand--
			s.leased = append(s.leased, rv.slot)
			buf := s.bufs[rv.slot][:rv.n]
			d := s.downstream
			s.mu.Unlock()
			metrics.Add(metrics.StreamNextDelivered, 1)
			if d.OnNext != nil {
				d.OnNext(buf)
			}
			continue
		}
		if len(s.writable) == 0 {
			// All slots consumed; suspend until request() frees one.
			s.mu.Unlock()
			_ = s.src.Suspend()
			metrics.Add(metrics.SocketBackpressureSuspends, 1)
			return
		}
		if s.socketIsEmpty {
			s.mu.Unlock()
			_ = s.src.Resume()
			return
		}
		slot := s.writable[len(s.writable)-1]
		s.writable = s.writable[:len(s.writable)-1]
		buf := s.bufs[slot]
		s.mu.Unlock()

		n, err := s.conn.Read(buf)
		metrics.Add(metrics.SocketReadvCalls, 1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				s.mu.Lock()
				s.writable = append(s.writable, slot)
				s.mu.Unlock()
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				s.mu.Lock()
				s.writable = append(s.writable, slot)
				s.socketIsEmpty = true
				s.mu.Unlock()
				_ = s.src.Resume()
				return
			}
			s.mu.Lock()
			s.writable = append(s.writable, slot)
			s.mu.Unlock()
			s.deliverError(newError(KindIO, "socket source read", err))
			s.close()
			return
		}
		if n == 0 {
			// Peer closed.
			s.mu.Lock()
			s.writable = append(s.writable, slot)
			s.mu.Unlock()
			s.close()
			return
		}
		metrics.Add(metrics.SocketReadvBytes, uint64(n))
		s.mu.Lock()
		s.readable = append(s.readable, readableView{slot: slot, n: n})
		s.mu.Unlock()
	}
}

func (s *Source) deliverError(err error) {
	s.mu.Lock()
	d := s.downstream
	s.mu.Unlock()
	metrics.Add(metrics.StreamErrors, 1)
	if d.OnError != nil {
		d.OnError(err)
	}
}

func (s *Source) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	d := s.downstream
	s.mu.Unlock()

	_ = s.src.Cancel()
	_ = s.conn.Close()
	s.freeBufs()
	metrics.Add(metrics.SocketConnsClose, 1)
	if d.OnClose != nil {
		d.OnClose()
	}
}

func (s *Source) freeBufs() {
	s.mu.Lock()
	bufs := s.bufs
	s.bufs = nil
	s.mu.Unlock()
	for _, b := range bufs {
		mcache.Free(b[:0])
	}
}
