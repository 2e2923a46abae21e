// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

import "sync"

// PushStream bridges a user-driven, non-reactive Push(item) producer into
// the back-pressured stream protocol: items queue in a backlog and drain
// out as downstream's demand allows. The delivering guard protects against
// re-entrant deliveries (Push called synchronously from within a
// downstream OnNext callback).
type PushStream struct {
	mu         sync.Mutex
	downstream Edge
	connected  bool
	demand     uint64
	backlog    []interface{}
	closed     bool
	delivering bool
}

// NewPushStream creates an unconnected PushStream.
func NewPushStream() *PushStream {
	return &PushStream{}
}

// Connect implements OutputStream.
func (p *PushStream) Connect(downstream Edge) {
	p.mu.Lock()
	p.downstream = downstream
	p.connected = true
	p.mu.Unlock()
	if downstream.OnConnect != nil {
		downstream.OnConnect(Upstream{Request: p.request, Cancel: p.cancel})
	}
	p.drain()
}

// Push enqueues item, delivering immediately if downstream has demand, or
// appending to the backlog otherwise.
func (p *PushStream) Push(item interface{}) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.backlog = append(p.backlog, item)
	p.mu.Unlock()
	p.drain()
}

// Close marks the producer exhausted. Once the backlog drains, OnClose
// fires downstream exactly once.
func (p *PushStream) Close() {
	p.mu.Lock()
	p.closed = true
	empty := len(p.backlog) == 0
	p.mu.Unlock()
	if empty {
		p.propagateClose()
	}
}

func (p *PushStream) request(n uint64) {
	p.mu.Lock()
	p.demand = AddDemand(p.demand, n)
	p.mu.Unlock()
	p.drain()
}

func (p *PushStream) cancel() {
	p.mu.Lock()
	p.closed = true
	p.backlog = nil
	p.mu.Unlock()
}

func (p *PushStream) propagateClose() {
	p.mu.Lock()
	d := p.downstream
	p.downstream = Edge{}
	p.mu.Unlock()
	if d.OnClose != nil {
		d.OnClose()
	}
}

func (p *PushStream) drain() {
	p.mu.Lock()
	if p.delivering {
		p.mu.Unlock()
		return
	}
	p.delivering = true
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if !p.connected || p.demand == 0 || len(p.backlog) == 0 {
			finished := len(p.backlog) == 0 && p.closed
			p.delivering = false
			p.mu.Unlock()
			if finished {
				p.propagateClose()
			}
			return
		}
		item := p.backlog[0]
		p.backlog = p.backlog[1:]
		p.demand--
		d := p.downstream
		p.mu.Unlock()
		if d.OnNext != nil {
			d.OnNext(item)
		}
	}
}
