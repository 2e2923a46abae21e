// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package tcp

import (
	"fmt"
	"net"
	"sync"

	"github.com/kavu/go_reuseport"
	"github.com/pkg/errors"

	"github.com/loopwire/loopwire/internal/netutil"
	"github.com/loopwire/loopwire/internal/taskpool"
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/log"
	"github.com/loopwire/loopwire/metrics"
	"github.com/loopwire/loopwire/socket"
)

// Handler is invoked once per accepted connection, on a goroutine of the
// internal task pool; dup is bound to the worker loop the connection was
// dispatched to. dup.Connect wires the
// read side into a pipeline; dup.Write feeds the write side.
type Handler func(conn *Conn, dup *socket.Duplex)

// Listener accepts TCP connections on a dedicated accept loop and
// dispatches each to a worker loop.Pool by round robin, per the
// concurrency model's "accept loop owns accepted-fd distribution, each
// socket becomes the exclusive property of its worker loop thereafter".
type Listener struct {
	ln         net.Listener
	fd         int
	acceptSrc  *loop.Source
	accept     *loop.Loop
	workers    *loop.Pool
	handler    Handler
	socketOpts []socket.Option

	mu    sync.Mutex
	conns map[int]*Conn
}

// Listen opens a TCP listener on addr (plain net.Listen, no
// SO_REUSEPORT), accepting onto its own loop and dispatching to workers.
func Listen(addr string, workers *loop.Pool, handler Handler) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "tcp listen")
	}
	return newListener(ln, workers, handler)
}

// ListenReuse opens a TCP listener with SO_REUSEPORT via
// github.com/kavu/go_reuseport, letting multiple processes (or multiple
// accept loops in this one) share one address.
func ListenReuse(addr string, workers *loop.Pool, handler Handler) (*Listener, error) {
	ln, err := reuseport.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "tcp listen reuse")
	}
	return newListener(ln, workers, handler)
}

func newListener(ln net.Listener, workers *loop.Pool, handler Handler) (*Listener, error) {
	fd, err := netutil.GetFD(ln)
	if err != nil {
		return nil, fmt.Errorf("tcp listener get fd: %w", err)
	}
	accept, err := loop.New("tcp-accept")
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln: ln, fd: fd, accept: accept, workers: workers, handler: handler,
		conns: make(map[int]*Conn),
	}
	l.acceptSrc = loop.NewReadSource(accept, fd, l.onAcceptable)
	if err := l.acceptSrc.Resume(); err != nil {
		accept.Close()
		return nil, err
	}
	return l, nil
}

// SetRingOptions overrides the ring size/buffer size used for every
// accepted connection's socket.Source (defaults per spec §6).
func (l *Listener) SetRingOptions(ringSize, bufSize int) {
	l.socketOpts = []socket.Option{socket.WithRingSize(ringSize), socket.WithBufferSize(bufSize)}
}

// Addr returns the listener's local address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve runs the accept loop until Close is called or Run returns an
// error (e.g. the listener fd was closed out from under it).
func (l *Listener) Serve() error {
	return l.accept.RunLoop(1000)
}

// Close stops accepting, closes every connection still tracked from this
// listener, and releases the listener fd.
func (l *Listener) Close() error {
	_ = l.acceptSrc.Cancel()
	err := l.accept.Close()
	if cerr := l.ln.Close(); cerr != nil && err == nil {
		err = cerr
	}

	l.mu.Lock()
	conns := l.conns
	l.conns = make(map[int]*Conn)
	l.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	return err
}

func (l *Listener) storeConn(c *Conn) {
	l.mu.Lock()
	l.conns[c.FD()] = c
	l.mu.Unlock()
}

func (l *Listener) deleteConn(c *Conn) {
	l.mu.Lock()
	delete(l.conns, c.FD())
	l.mu.Unlock()
}

func (l *Listener) onAcceptable(isEOF bool) {
	if isEOF {
		return
	}
	for {
		fd, sa, err := netutil.Accept(l.fd)
		if err != nil {
			return
		}
		raddr := netutil.SockaddrToTCPOrUnixAddr(sa)
		conn := newConn(fd, l.ln.Addr(), raddr)
		conn.onClose = func() { l.deleteConn(conn) }
		l.storeConn(conn)
		metrics.Add(metrics.SocketConnsCreate, 1)

		worker := l.workers.Pick()
		dup := socket.NewDuplex(worker, conn, l.socketOpts...)
		if l.handler == nil {
			log.Warnf("tcp: accepted %s with no handler set, closing", raddr)
			dup.Close()
			continue
		}
		// The user handler may do blocking setup (auth lookups, config
		// reads); offload it so one slow connection can't stall this
		// accept loop's processing of the rest of the backlog.
		handler, c, d := l.handler, conn, dup
		taskpool.Submit(func() { handler(c, d) })
	}
}
