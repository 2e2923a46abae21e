// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream_test

import "github.com/loopwire/loopwire/stream"

// listStream is a minimal demand-driven producer over a fixed slice, used
// as an upstream test double across this package's tests.
type listStream struct {
	items      []interface{}
	idx        int
	demand     uint64
	downstream stream.Edge
	cancelled  bool
}

func newListStream(items ...interface{}) *listStream {
	return &listStream{items: items}
}

func (s *listStream) Connect(d stream.Edge) {
	s.downstream = d
	if d.OnConnect != nil {
		d.OnConnect(stream.Upstream{Request: s.request, Cancel: s.cancel})
	}
}

func (s *listStream) request(n uint64) {
	s.demand = stream.AddDemand(s.demand, n)
	s.emit()
}

func (s *listStream) cancel() {
	s.cancelled = true
}

func (s *listStream) emit() {
	for s.demand > 0 && s.idx < len(s.items) && !s.cancelled {
		item := s.items[s.idx]
		s.idx++
		s.demand--
		if s.downstream.OnNext != nil {
			s.downstream.OnNext(item)
		}
	}
	if s.idx >= len(s.items) && !s.cancelled {
		if s.downstream.OnClose != nil {
			s.downstream.OnClose()
		}
	}
}
