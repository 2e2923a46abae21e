// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package tcp

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/loopwire/loopwire/internal/netutil"
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/socket"
)

// Dial connects to addr and hands the resulting fd to worker, returning a
// Duplex ready for Connect. The blocking handshake goes through the
// standard library (net.DialTimeout), then the fd is extracted and
// switched to non-blocking: the connect() itself runs on a throwaway
// net.Conn, and this function takes over its fd rather than reimplementing
// the connect/retry logic with raw syscalls.
func Dial(addr string, timeout time.Duration, worker *loop.Loop, opts ...socket.Option) (*Conn, *socket.Duplex, error) {
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, nil, errors.Wrap(err, "tcp dial")
	}
	fd, err := netutil.DupFD(nc)
	// The duped fd is independent of nc's, so closing nc right after dup is
	// safe and releases the throwaway net.Conn's bookkeeping promptly.
	_ = nc.Close()
	if err != nil {
		return nil, nil, errors.Wrap(err, "tcp dial dup fd")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, nil, errors.Wrap(err, "tcp dial set nonblock")
	}

	conn := newConn(fd, nc.LocalAddr(), nc.RemoteAddr())
	dup := socket.NewDuplex(worker, conn, opts...)
	return conn, dup, nil
}
