// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package socket implements the Socket Source and Socket Sink (component
// E): adapters translating an OS-readable/writable descriptor into the
// demand-driven stream protocol. The raw syscalls live behind the
// Descriptor interface so this package never touches a file descriptor
// directly — callers (the tcp collaborator) supply one.
package socket

// Descriptor is the minimal duplex I/O surface a Source/Sink adapts to the
// stream protocol, matching spec §6's external-interface contract
// ({descriptor, read, write, close, is_prepared, prepare}). Read/Write
// behave like non-blocking syscalls: implementations return
// golang.org/x/sys/unix.EAGAIN (wrapped via github.com/pkg/errors) when the
// operation would block, exactly as tcpconn.go's nfd.Writev callers check
// via errors.Is(err, unix.EAGAIN).
type Descriptor interface {
	// FD returns the descriptor's underlying file descriptor number, used
	// only to register the loop.Source.
	FD() int
	// Read fills buf with at most len(buf) bytes. Returns (0, io.EOF) (or
	// n==0, err==nil) when the peer closed; returns (0, unix.EAGAIN) when
	// no data is currently available.
	Read(buf []byte) (int, error)
	// Write writes as much of buf as the kernel currently accepts.
	Write(buf []byte) (int, error)
	// Close releases the underlying descriptor.
	Close() error
	// IsPrepared reports whether Prepare has already run successfully.
	IsPrepared() bool
	// Prepare performs one-time setup (e.g. TLS handshake) before the
	// first write. Descriptors needing no preparation always return true
	// from IsPrepared.
	Prepare() error
}
