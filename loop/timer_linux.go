// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package loop

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/loopwire/loopwire/internal/poller"
	"github.com/loopwire/loopwire/log"
)

// bindTimerFD creates and arms a real timerfd for desc, pointing desc.FD at
// it. On Linux a timerfd is leveled exactly like a readable fd, so Timer and
// Tick sources are registered through the ordinary Readable path.
func bindTimerFD(desc *poller.Desc) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		log.Errorf("loop: timerfd_create: %v", err)
		return
	}
	desc.FD = fd
	d := time.Duration(desc.TimeoutMS) * time.Millisecond
	if d <= 0 {
		// An all-zero it_value disarms a timerfd; 1ns fires on the next poll.
		d = time.Nanosecond
	}
	interval := time.Duration(0)
	if desc.Periodic {
		interval = d
	}
	spec := &unix.ItimerSpec{
		Value:    unix.NsecToTimespec(d.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		log.Errorf("loop: timerfd_settime: %v", err)
	}
}

// releaseTimerFD closes the timerfd backing desc, if any.
func releaseTimerFD(desc *poller.Desc) {
	if desc.FD > 0 {
		_ = unix.Close(desc.FD)
	}
}

// drainTimerFD reads the 8-byte expiration counter off a level-triggered
// timerfd so it stops reporting readable once consumed.
func drainTimerFD(desc *poller.Desc) {
	var buf [8]byte
	_, _ = unix.Read(desc.FD, buf[:])
}
