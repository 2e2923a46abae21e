// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package tcp is an external collaborator (spec §13): it supplies the
// concrete fd-backed socket.Descriptor the core's socket package adapts,
// plus Listen/Dial helpers and a net.Conn-shaped facade built on top of a
// stream pipeline. The raw syscall layer here covers only the TCP path;
// there is no UDP path since nothing in this module needs one.
package tcp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/loopwire/loopwire/internal/asynctimer"
	"github.com/loopwire/loopwire/internal/netutil"
)

// netError adapts an error to the net.Error interface.
type netError struct {
	error
	isTimeout bool
}

// Timeout implements net.Error.
func (e netError) Timeout() bool { return e.isTimeout }

// Temporary implements net.Error.
func (e netError) Temporary() bool {
	switch e.error {
	case unix.EAGAIN, unix.ECONNRESET, unix.ECONNABORTED:
		return true
	default:
		return false
	}
}

// ErrConnClosed is returned by Conn operations after Close.
var ErrConnClosed = netError{error: errors.New("tcp: conn is closed")}

// Conn wraps a raw non-blocking TCP file descriptor, implementing
// socket.Descriptor so it can be handed to socket.NewSource/NewSink/
// NewDuplex. It also carries the addressing and lifecycle bits
// (SetKeepAlive, SetIdleTimeout) that callers expect on the connection
// itself rather than on the pipeline wrapping it.
type Conn struct {
	fd      int
	laddr   net.Addr
	raddr   net.Addr
	closed  atomic.Bool
	locker  sync.Mutex
	idleMu  sync.Mutex
	idle    *asynctimer.Timer
	onClose func()
}

func newConn(fd int, laddr, raddr net.Addr) *Conn {
	return &Conn{fd: fd, laddr: laddr, raddr: raddr}
}

// FD implements socket.Descriptor.
func (c *Conn) FD() int { return c.fd }

// Read implements socket.Descriptor.
func (c *Conn) Read(buf []byte) (int, error) {
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}

// Write implements socket.Descriptor.
func (c *Conn) Write(buf []byte) (int, error) {
	n, err := unix.Write(c.fd, buf)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}

// Close implements socket.Descriptor; safe for concurrent and repeated
// calls via a CAS guard.
func (c *Conn) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	c.idleMu.Lock()
	if c.idle != nil {
		asynctimer.Del(c.idle)
		c.idle = nil
	}
	c.idleMu.Unlock()
	if c.onClose != nil {
		c.onClose()
	}
	return unix.Close(c.fd)
}

// IsPrepared implements socket.Descriptor; plain TCP needs no handshake.
func (c *Conn) IsPrepared() bool { return true }

// Prepare implements socket.Descriptor.
func (c *Conn) Prepare() error { return nil }

// LocalAddr returns the connection's local address.
func (c *Conn) LocalAddr() net.Addr { return c.laddr }

// RemoteAddr returns the connection's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.raddr }

// SetKeepAlive enables TCP keep-alive with the given period, rounded up
// to whole seconds since SO_KEEPALIVE intervals are specified that way.
func (c *Conn) SetKeepAlive(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return netutil.SetKeepAlive(c.fd, secs)
}

// SetNoDelay sets or clears TCP_NODELAY.
func (c *Conn) SetNoDelay(noDelay bool) error {
	v := 0
	if noDelay {
		v = 1
	}
	return unix.SetsockoptInt(c.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// SetIdleTimeout arranges for onIdle (typically Close wired by the
// caller) to run if the connection is not refreshed within d, using the
// internal/asynctimer time wheel so idle reaping scales to many
// connections without a timer goroutine per connection. Call Refresh on
// every read/write to keep the connection alive.
func (c *Conn) SetIdleTimeout(d time.Duration, onIdle func()) error {
	c.idleMu.Lock()
	defer c.idleMu.Unlock()
	if c.idle != nil {
		asynctimer.Del(c.idle)
		c.idle = nil
	}
	if d <= 0 {
		return nil
	}
	c.idle = asynctimer.NewTimer(c, func(data interface{}) {
		if onIdle != nil {
			onIdle()
		}
	}, d)
	if err := asynctimer.Add(c.idle); err != nil {
		return fmt.Errorf("tcp conn set idle timeout: %w", err)
	}
	return nil
}

// Refresh resets the idle timer, if one is set. Callers' Read/Write
// paths should call this on every successful I/O.
func (c *Conn) Refresh() {
	c.idleMu.Lock()
	defer c.idleMu.Unlock()
	if c.idle != nil {
		_ = asynctimer.Add(c.idle)
	}
}
