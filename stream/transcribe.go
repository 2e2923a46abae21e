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

// TranscribeFunc is a 1-to-future-1 transform: it may complete
// asynchronously, but results are always delivered downstream in the order
// their inputs arrived, regardless of completion order.
type TranscribeFunc func(item interface{}) *promise.Future[interface{}]

// Transcribe applies f to every item, preserving input order in its
// downstream deliveries even though f's futures may resolve out of order.
// Demand passes straight through, as with Map.
func Transcribe(upstream OutputStream, f TranscribeFunc) OutputStream {
	return OutputStreamFunc(func(downstream Edge) {
		st := &transcribeStage{downstream: downstream, f: f, results: make(map[uint64]transcribeResult)}
		upstream.Connect(Edge{
			OnConnect: downstream.OnConnect,
			OnNext:    st.onNext,
			OnError:   downstream.OnError,
			OnClose:   downstream.OnClose,
		})
	})
}

type transcribeResult struct {
	val interface{}
	err error
}

type transcribeStage struct {
	mu         sync.Mutex
	f          TranscribeFunc
	downstream Edge
	nextIn     uint64
	nextOut    uint64
	results    map[uint64]transcribeResult
	failed     bool
}

func (s *transcribeStage) onNext(item interface{}) {
	s.mu.Lock()
	idx := s.nextIn
	s.nextIn++
	s.mu.Unlock()

	s.f(item).Always(func(v interface{}, err error) {
		s.mu.Lock()
		if s.failed {
			s.mu.Unlock()
			return
		}
		s.results[idx] = transcribeResult{val: v, err: err}
		for {
			r, ok := s.results[s.nextOut]
			if !ok {
				break
			}
			delete(s.results, s.nextOut)
			s.nextOut++
			if r.err != nil {
				s.failed = true
				s.mu.Unlock()
				if s.downstream.OnError != nil {
					s.downstream.OnError(r.err)
				}
				return
			}
			s.mu.Unlock()
			if s.downstream.OnNext != nil {
				s.downstream.OnNext(r.val)
			}
			s.mu.Lock()
		}
		s.mu.Unlock()
	})
}
