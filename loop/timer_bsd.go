// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build freebsd || dragonfly || darwin
// +build freebsd dragonfly darwin

package loop

import (
	"sync/atomic"

	"github.com/loopwire/loopwire/internal/poller"
)

// syntheticID hands out unique negative identifiers for kqueue EVFILT_TIMER
// registrations, which key off desc.FD as an opaque ident rather than a
// real OS file descriptor. Negative values never collide with a real fd.
var syntheticID int64

func nextSyntheticID() int {
	return int(atomic.AddInt64(&syntheticID, -1))
}

// bindTimerFD assigns desc a synthetic identifier; kqueue has no timer fd
// of its own, the EVFILT_TIMER registration happens directly against this
// ident in poller.Control(Timer).
func bindTimerFD(desc *poller.Desc) {
	desc.FD = nextSyntheticID()
}

// releaseTimerFD is a no-op on kqueue: there is no real fd to close, the
// EVFILT_TIMER registration is torn down by Source.Cancel's Control(Detach).
func releaseTimerFD(desc *poller.Desc) {}

// drainTimerFD is a no-op on kqueue: EVFILT_TIMER delivers a synthetic
// kevent, there is nothing to read.
func drainTimerFD(desc *poller.Desc) {}
