// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

import (
	"sync"

	"github.com/loopwire/loopwire/loop"
)

// TranslateResult classifies what a TranslateFunc did with the input it was
// given.
type TranslateResult int

// Results a TranslateFunc can report.
const (
	// Insufficient means the input was fully consumed but not enough to
	// produce an output yet; more input is needed.
	Insufficient TranslateResult = iota
	// Sufficient means exactly one output was produced and the input was
	// fully consumed.
	Sufficient
	// Excess means exactly one output was produced but part of the input
	// remains; remaining replaces the current input for the next call.
	Excess
)

// TranslateFunc attempts to produce one output item from input. remaining
// is consulted only when result == Excess, and becomes the next current
// input (the stand-in for the original algorithm's in-place mutation of a
// pointer to the current input, expressed here as a returned replacement
// since Go has no reference-to-interface-value idiom for this).
type TranslateFunc func(input interface{}) (output interface{}, remaining interface{}, result TranslateResult)

const maxSyncUpdateDepth = 64

// Translate implements the translate(f) operator (1-to-{0,1,many}),
// following the translating-stream algorithm verbatim: a single current
// input plus a demand counter drive a bounded update loop. worker is
// used to yield via its next-tick source once one update pass has run more
// than maxSyncUpdateDepth steps, counting steps triggered by re-entrant
// Request calls; with a nil worker the pass runs to completion.
func Translate(upstream OutputStream, worker *loop.Loop, f TranslateFunc) OutputStream {
	return OutputStreamFunc(func(downstream Edge) {
		st := &translateStage{downstream: downstream, worker: worker, f: f}
		upstream.Connect(Edge{
			OnConnect: func(up Upstream) {
				st.upstream = up
				if downstream.OnConnect != nil {
					downstream.OnConnect(Upstream{Request: st.request, Cancel: up.Cancel})
				}
			},
			OnNext: st.onNext,
			OnError: func(err error) {
				if downstream.OnError != nil {
					downstream.OnError(err)
				}
			},
			OnClose: st.onUpstreamClose,
		})
	})
}

type translateStage struct {
	mu     sync.Mutex
	worker *loop.Loop
	f      TranslateFunc

	upstream   Upstream
	downstream Edge

	currentInput interface{}
	hasInput     bool
	demand       uint64
	closed       bool

	inUpdate      bool
	pendingUpdate bool
}

func (s *translateStage) request(n uint64) {
	s.mu.Lock()
	s.demand = AddDemand(s.demand, n)
	s.mu.Unlock()
	s.update()
}

func (s *translateStage) onNext(item interface{}) {
	s.mu.Lock()
	s.currentInput = item
	s.hasInput = true
	s.mu.Unlock()
	s.update()
}

func (s *translateStage) onUpstreamClose() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.update()
}

// update drives the bounded loop described in the translating-stream
// algorithm. Re-entrant calls (e.g. downstream calling Request
// synchronously from within OnNext) do not recurse: they set a pending
// flag that the active loop observes and continues on.
func (s *translateStage) update() {
	s.mu.Lock()
	if s.inUpdate {
		s.pendingUpdate = true
		s.mu.Unlock()
		return
	}
	s.inUpdate = true
	s.mu.Unlock()

	depth := 0
	for {
		for s.step() {
			depth++
			if depth > maxSyncUpdateDepth && s.worker != nil {
				s.mu.Lock()
				s.inUpdate = false
				s.mu.Unlock()
				s.worker.NextTick(s.update)
				return
			}
		}

		s.mu.Lock()
		again := s.pendingUpdate
		s.pendingUpdate = false
		if !again {
			s.inUpdate = false
		}
		s.mu.Unlock()
		if !again {
			return
		}
	}
}

// step performs one iteration of the translating-stream algorithm's update
// loop and reports whether the loop should continue.
func (s *translateStage) step() bool {
	s.mu.Lock()
	if s.demand == 0 {
		s.mu.Unlock()
		return false
	}
	if !s.hasInput {
		closed := s.closed
		s.mu.Unlock()
		if closed {
			if s.downstream.OnClose != nil {
				s.downstream.OnClose()
			}
			return false
		}
		if s.upstream.Request != nil {
			s.upstream.Request(1)
		}
		return false
	}
	input := s.currentInput
	s.mu.Unlock()

	out, remaining, res := s.f(input)
	switch res {
	case Insufficient:
		s.mu.Lock()
		s.hasInput = false
		s.mu.Unlock()
		return true
	case Sufficient:
		s.mu.Lock()
		s.hasInput = false
		s.demand--
		s.mu.Unlock()
		if s.downstream.OnNext != nil {
			s.downstream.OnNext(out)
		}
		return true
	case Excess:
		s.mu.Lock()
		s.currentInput = remaining
		s.demand--
		s.mu.Unlock()
		if s.downstream.OnNext != nil {
			s.downstream.OnNext(out)
		}
		return true
	default:
		return false
	}
}
