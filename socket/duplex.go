// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package socket

import (
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/stream"
)

// Duplex combines a Source and Sink over the same Descriptor into one
// full-duplex stream endpoint, the socket adapter spec §6 describes as
// producing "a source stream and sink stream and a combined duplex
// stream". Reads flow out through Connect (the Source half); writes flow
// in through Write, bridged to the Sink via a stream.PushStream exactly as
// spec §4.3 describes push_stream adapting a non-reactive producer.
type Duplex struct {
	Source *Source
	Sink   *Sink
	writes *stream.PushStream
}

// NewDuplex wires a read Source and write Sink over the same conn, with
// opts sizing the ring backing the read side (see NewSource).
func NewDuplex(worker *loop.Loop, conn Descriptor, opts ...Option) *Duplex {
	d := &Duplex{
		Source: NewSource(worker, conn, opts...),
		Sink:   NewSink(worker, conn),
	}
	d.writes = stream.NewPushStream()
	d.writes.Connect(d.Sink.Edge())
	return d
}

// Connect implements stream.OutputStream over the read half.
func (d *Duplex) Connect(downstream stream.Edge) {
	d.Source.Connect(downstream)
}

// Write enqueues buf to be written out. Ordering and multiplicity of
// writes are preserved (spec §8's push_stream round-trip property), since
// the underlying PushStream delivers its backlog strictly in push order.
func (d *Duplex) Write(buf []byte) {
	d.writes.Push(buf)
}

// Close tears down both the read and write halves; idempotent.
func (d *Duplex) Close() {
	d.writes.Close()
	d.Source.Close()
}
