// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package tcp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/loopwire/loopwire/socket"
	"github.com/loopwire/loopwire/stream"
)

// ErrFacadeClosed is returned by Facade.Read/Write once the underlying
// duplex has closed.
var ErrFacadeClosed = errors.New("tcp: facade is closed")

// errNotSupported is returned by the net.Conn deadline methods: the
// pipeline is demand-driven rather than poll-on-demand, so a per-call
// blocking deadline has no natural translation (see SetIdleTimeout on Conn
// for the supported idle-teardown equivalent).
var errNotSupported = errors.New("tcp: deadlines are not supported, use Conn.SetIdleTimeout")

// Facade presents a Duplex as a blocking net.Conn, for callers migrating
// code written against the standard library rather than against streams
// directly. It is built by draining the duplex's read side into a channel
// and feeding writes straight through to Duplex.Write, per the "net.Conn-
// shaped convenience wrapper built by draining/feeding a stream pipeline"
// external-collaborator surface.
type Facade struct {
	conn *Conn
	dup  *socket.Duplex

	incoming chan []byte
	closed   chan struct{}
	closeErr error
	once     sync.Once

	mu       sync.Mutex
	leftover []byte
}

// NewFacade wraps conn/dup, immediately connecting the duplex's read side
// to an internal drain stage that buffers up to backlog chunks before
// back-pressuring the socket source.
func NewFacade(conn *Conn, dup *socket.Duplex, backlog int) *Facade {
	if backlog <= 0 {
		backlog = 64
	}
	f := &Facade{
		conn:     conn,
		dup:      dup,
		incoming: make(chan []byte, backlog),
		closed:   make(chan struct{}),
	}
	dup.Connect(stream.Drain(stream.DrainOptions{
		OnInput: func(item interface{}) {
			buf := item.([]byte)
			cp := make([]byte, len(buf))
			copy(cp, buf)
			select {
			case f.incoming <- cp:
			case <-f.closed:
			}
		},
		OnError: func(err error) { f.fail(err) },
		OnClose: func() { f.fail(nil) },
	}))
	return f
}

func (f *Facade) fail(err error) {
	f.once.Do(func() {
		f.closeErr = err
		close(f.closed)
	})
}

// Read implements net.Conn.
func (f *Facade) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.leftover) > 0 {
		n := copy(p, f.leftover)
		f.leftover = f.leftover[n:]
		f.mu.Unlock()
		return n, nil
	}
	f.mu.Unlock()

	// A chunk queued right before close still has priority over the close
	// signal, so drain non-blocking before waiting on f.closed.
	select {
	case chunk := <-f.incoming:
		return f.stash(p, chunk), nil
	default:
	}

	select {
	case chunk := <-f.incoming:
		return f.stash(p, chunk), nil
	case <-f.closed:
		select {
		case chunk := <-f.incoming:
			return f.stash(p, chunk), nil
		default:
			return 0, f.closeErrOrEOF()
		}
	}
}

func (f *Facade) stash(p, chunk []byte) int {
	n := copy(p, chunk)
	if n < len(chunk) {
		f.mu.Lock()
		f.leftover = chunk[n:]
		f.mu.Unlock()
	}
	return n
}

func (f *Facade) closeErrOrEOF() error {
	if f.closeErr != nil {
		return f.closeErr
	}
	return ErrFacadeClosed
}

// Write implements net.Conn. The buffer is copied before handing it to the
// duplex's push stream, since the caller retains ownership of p on return.
func (f *Facade) Write(p []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, f.closeErrOrEOF()
	default:
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	f.dup.Write(cp)
	return len(p), nil
}

// Close implements net.Conn.
func (f *Facade) Close() error {
	f.dup.Close()
	f.fail(nil)
	return nil
}

// LocalAddr implements net.Conn.
func (f *Facade) LocalAddr() net.Addr { return f.conn.LocalAddr() }

// RemoteAddr implements net.Conn.
func (f *Facade) RemoteAddr() net.Addr { return f.conn.RemoteAddr() }

// SetDeadline implements net.Conn; unsupported, see errNotSupported.
func (f *Facade) SetDeadline(t time.Time) error { return errNotSupported }

// SetReadDeadline implements net.Conn; unsupported, see errNotSupported.
func (f *Facade) SetReadDeadline(t time.Time) error { return errNotSupported }

// SetWriteDeadline implements net.Conn; unsupported, see errNotSupported.
func (f *Facade) SetWriteDeadline(t time.Time) error { return errNotSupported }

var _ net.Conn = (*Facade)(nil)
