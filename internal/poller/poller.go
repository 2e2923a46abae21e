// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package poller provides event driven polling system to monitor file description events.
package poller

import "fmt"

// Event defines the operation of poll.Control.
type Event int

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case Readable:
		return "Readable"
	case ModReadable:
		return "ModReadable"
	case Writable:
		return "Writeable"
	case ModWritable:
		return "ModWriteable"
	case ReadWriteable:
		return "ReadWriteable"
	case ModReadWriteable:
		return "ModReadWriteable"
	case Detach:
		return "Detach"
	case Timer:
		return "Timer"
	case ModTimer:
		return "ModTimer"
	default:
		return fmt.Sprintf("Event(%d)", e)
	}
}

// Job function is defined for jobs.
type Job func() error

// GoschedAfterEvent, when true, makes the kqueue backend call
// runtime.Gosched() after dispatching each individual event, trading
// latency for fairness with other goroutines under heavy load.
var GoschedAfterEvent bool

// Constants for PollEvents.
const (
	Readable Event = iota
	ModReadable
	Writable
	ModWritable
	ReadWriteable
	ModReadWriteable
	Detach
	// Timer and ModTimer register or re-arm a timer source. On notifiers
	// that expose a native timer fd (epoll, via timerfd), these behave
	// exactly like Readable/ModReadable against an already-armed fd. On
	// notifiers without one (kqueue), the poller registers a genuine
	// EVFILT_TIMER event using Desc.TimeoutMS/Periodic.
	Timer
	ModTimer
)

// DefaultMaxEvents is the event-list buffer size a Poller is created with
// when maxEvents <= 0 is passed to New.
const DefaultMaxEvents = 4096

// New creates a standalone Poller with its own notifier handle (epoll/kqueue
// fd). It does not spawn a goroutine running Wait(); the caller drives it
// (see loop.Loop, which calls Poll for single poll cycles). maxEvents bounds
// how many events a single underlying epoll_wait/kevent call can return;
// DefaultMaxEvents is used when maxEvents <= 0.
func New(ignoreTaskError bool, maxEvents int) (Poller, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return newPoller(ignoreTaskError, maxEvents)
}

// Poller monitors file descriptor, calls Desc callbacks according to specific events.
type Poller interface {
	// Wait will poll all the registered Desc, and trigger the event callback
	// specified by the Desc. It runs until Close or a fatal error.
	Wait() error

	// Poll performs at most one poll cycle: it blocks for up to
	// timeoutMsec milliseconds (or indefinitely when timeoutMsec < 0,
	// or returns immediately when timeoutMsec == 0), dispatches whatever
	// events the one underlying syscall returned, and returns. EINTR is
	// retried transparently within the same call; it never itself
	// counts as a poll result.
	Poll(timeoutMsec int) error

	// Close closes the poller and stops Wait().
	Close() error

	// Trigger enqueues job and wakes up a blocked Wait(). Each Poller
	// maintains a FIFO job queue; all jobs queued before a wakeup run,
	// in order, on the poller's own goroutine once Wait() observes the
	// wakeup, before the next poll cycle begins.
	Trigger(Job) error

	// Control registers an event of Desc, which is defined by Event.
	Control(*Desc, Event) error

	// SetDepthGuard installs a callback consulted after every per-event
	// dispatch within a single Poll/Wait cycle. When it returns true
	// (a nested Poll/Wait was invoked from within a callback, meaning
	// the in-flight event batch may have been invalidated), the poller
	// abandons the remaining events of the current cycle.
	SetDepthGuard(guard func() bool)
}
