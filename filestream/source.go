// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package filestream is an external collaborator (spec §13): it wraps an
// *os.File the same way the socket package wraps a socket fd, except a
// regular file is always "ready" so there is no readiness notifier to
// register with a loop.Loop. What it keeps from socket.Source is the
// demand-driven next/request contract, so a file can feed the same
// operator pipeline a socket would (file -> chunking_stream -> sink).
package filestream

import (
	"io"
	"os"
	"sync"

	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/metrics"
	"github.com/loopwire/loopwire/stream"
)

// DefaultBufferSize is the chunk size Source reads into when none is given.
const DefaultBufferSize = 4096

// maxSyncReadsPerTick bounds how many Read calls Source issues back to back
// before yielding the loop goroutine via NextTick, the same bounded-update
// discipline stream.Translate uses to avoid starving the loop on a large
// file read under unbounded demand.
const maxSyncReadsPerTick = 64

// Source reads a file in bufSize chunks, delivering one stream.Edge.OnNext
// per successful read and stream.Edge.OnClose on EOF.
type Source struct {
	mu sync.Mutex

	f       *os.File
	worker  *loop.Loop
	bufSize int

	demand uint64
	closed bool

	downstream stream.Edge
}

// NewSource wraps f, reading bufSize bytes at a time (DefaultBufferSize if
// bufSize <= 0). worker is where update() and its NextTick yields run;
// downstream callbacks fire on worker's own goroutine, same as socket.Source.
func NewSource(worker *loop.Loop, f *os.File, bufSize int) *Source {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Source{f: f, worker: worker, bufSize: bufSize}
}

// Connect implements stream.OutputStream.
func (s *Source) Connect(downstream stream.Edge) {
	s.mu.Lock()
	s.downstream = downstream
	s.mu.Unlock()
	if downstream.OnConnect != nil {
		downstream.OnConnect(stream.Upstream{Request: s.request, Cancel: s.cancel})
	}
}

func (s *Source) request(n uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.demand = stream.AddDemand(s.demand, n)
	metrics.Add(metrics.StreamDemandRequested, n)
	s.mu.Unlock()
	s.worker.NextTick(func() { s.update(0) })
}

func (s *Source) cancel() {
	s.Close()
}

// Close tears the source down without notifying downstream; idempotent.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.f.Close()
}

func (s *Source) update(reads int) {
	for {
		s.mu.Lock()
		if s.closed || s.demand == 0 {
			s.mu.Unlock()
			return
		}
		if reads >= maxSyncReadsPerTick {
			s.mu.Unlock()
			s.worker.NextTick(func() { s.update(0) })
			return
		}
		bufSize := s.bufSize
		d := s.downstream
		s.mu.Unlock()

		buf := make([]byte, bufSize)
		n, err := s.f.Read(buf)
		reads++
		if n > 0 {
			metrics.Add(metrics.FileReadCalls, 1)
			metrics.Add(metrics.FileReadBytes, uint64(n))
			s.mu.Lock()
			s.demand--
			s.mu.Unlock()
			metrics.Add(metrics.StreamNextDelivered, 1)
			if d.OnNext != nil {
				d.OnNext(buf[:n])
			}
		}
		if err != nil {
			if err == io.EOF {
				s.close(nil)
				return
			}
			s.close(err)
			return
		}
		if n == 0 {
			s.close(nil)
			return
		}
	}
}

func (s *Source) close(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	d := s.downstream
	s.mu.Unlock()
	_ = s.f.Close()
	if err != nil {
		metrics.Add(metrics.StreamErrors, 1)
		if d.OnError != nil {
			d.OnError(err)
		}
		return
	}
	if d.OnClose != nil {
		d.OnClose()
	}
}
