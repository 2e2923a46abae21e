// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package loop

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/loopwire/loopwire/internal/poller"
	"github.com/loopwire/loopwire/log"
	"github.com/loopwire/loopwire/metrics"
)

// Direction classifies what a Source watches for.
type Direction int

// Kinds of Source.
const (
	// Read fires when the fd has inbound data or is at EOF.
	Read Direction = iota
	// Write fires when the fd has buffer space.
	Write
	// Timer fires once after a duration (or periodically, see NewTimerSource).
	Timer
	// Tick fires once on the next poll cycle.
	Tick
)

// State is one of the three states of the Event Source state machine.
type State int32

// States of a Source. Transitions are suspended<->resumed and
// {suspended,resumed}->cancelled; cancelled is terminal.
const (
	Suspended State = iota
	Resumed
	Cancelled
)

// Callback is invoked on each firing of a Source. isEOF signals a terminal
// hangup (Read/Write sources) or exhaustion (one-shot Timer/Tick sources).
type Callback func(isEOF bool)

// Source is an Event Source (component A): it wraps a poller.Desc with the
// suspended/resumed/cancelled state machine the raw notifier does not have.
// A Source must not outlive the Loop that created it.
type Source struct {
	loop *Loop
	desc *poller.Desc
	dir  Direction

	mu    sync.Mutex
	state atomic.Int32
	cb    Callback
}

func newSource(l *Loop, dir Direction, fd int, cb Callback) *Source {
	desc := poller.NewDesc()
	desc.FD = fd
	s := &Source{loop: l, desc: desc, dir: dir, cb: cb}
	s.state.Store(int32(Suspended))
	desc.Data = s
	switch dir {
	case Read, Timer, Tick:
		desc.OnRead = s.onReady
	case Write:
		desc.OnWrite = s.onReady
	}
	desc.OnHup = s.onHup
	if err := desc.Bind(l.poller); err != nil {
		log.Errorf("loop: bind source: %v", err)
	}
	return s
}

// NewReadSource creates a suspended Read Source for fd on l.
func NewReadSource(l *Loop, fd int, cb Callback) *Source {
	return newSource(l, Read, fd, cb)
}

// NewWriteSource creates a suspended Write Source for fd on l.
func NewWriteSource(l *Loop, fd int, cb Callback) *Source {
	return newSource(l, Write, fd, cb)
}

// NewTimerSource creates a suspended Timer Source that, once resumed, fires
// once after d (or periodically every d, if periodic is true). A zero
// duration behaves identically to NewTickSource.
func NewTimerSource(l *Loop, d time.Duration, periodic bool, cb Callback) *Source {
	if d <= 0 {
		return NewTickSource(l, cb)
	}
	s := newSource(l, Timer, 0, cb)
	s.desc.TimeoutMS = d.Milliseconds()
	if s.desc.TimeoutMS == 0 {
		s.desc.TimeoutMS = 1
	}
	s.desc.Periodic = periodic
	bindTimerFD(s.desc)
	return s
}

// NewTickSource creates a suspended Source that fires exactly once, on the
// next poll cycle of l.
func NewTickSource(l *Loop, cb Callback) *Source {
	s := newSource(l, Tick, 0, cb)
	s.desc.TimeoutMS = 0
	s.desc.Periodic = false
	bindTimerFD(s.desc)
	return s
}

// State returns the current state of the Source.
func (s *Source) State() State {
	return State(s.state.Load())
}

// Resume registers (or re-registers) the Source with the kernel notifier,
// moving it from suspended to resumed. It is idempotent: resuming an
// already-resumed Source is a no-op.
func (s *Source) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch State(s.state.Load()) {
	case Resumed:
		return nil
	case Cancelled:
		return ErrInvalidTransition
	}
	var ev poller.Event
	switch s.dir {
	case Read:
		ev = poller.Readable
	case Write:
		ev = poller.Writable
	case Timer, Tick:
		ev = poller.Timer
	}
	if err := s.desc.Control(ev); err != nil {
		return newError(KindRegistration, "resume source", err)
	}
	s.state.Store(int32(Resumed))
	metrics.Add(metrics.SourceResume, 1)
	return nil
}

// Suspend deregisters the Source from the kernel notifier, moving it from
// resumed to suspended. Resume() re-attaches it later. It is idempotent.
func (s *Source) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch State(s.state.Load()) {
	case Suspended:
		return nil
	case Cancelled:
		return ErrInvalidTransition
	}
	if err := s.desc.Control(poller.Detach); err != nil {
		return newError(KindRegistration, "suspend source", err)
	}
	s.state.Store(int32(Suspended))
	metrics.Add(metrics.SourceSuspend, 1)
	return nil
}

// Cancel permanently deregisters the Source and releases its slot. It is
// terminal: no further Resume/Suspend is possible afterward.
func (s *Source) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := State(s.state.Swap(int32(Cancelled)))
	if prev == Cancelled {
		return nil
	}
	var err error
	if prev == Resumed {
		err = s.desc.Control(poller.Detach)
	}
	if s.dir == Timer || s.dir == Tick {
		releaseTimerFD(s.desc)
	}
	poller.FreeDesc(s.desc)
	metrics.Add(metrics.SourceCancel, 1)
	if err != nil {
		return newError(KindRegistration, "cancel source", err)
	}
	return nil
}

func (s *Source) onReady(data interface{}) error {
	if State(s.state.Load()) != Resumed {
		return nil
	}
	if s.dir == Timer || s.dir == Tick {
		drainTimerFD(s.desc)
		metrics.Add(metrics.TimerFires, 1)
	}
	if s.cb != nil {
		s.cb(false)
	}
	if s.dir == Tick || (s.dir == Timer && !s.desc.Periodic) {
		_ = s.Cancel()
	}
	return nil
}

func (s *Source) onHup(data interface{}) {
	if State(s.state.Load()) == Cancelled {
		return
	}
	s.state.Store(int32(Cancelled))
	if s.dir == Timer || s.dir == Tick {
		releaseTimerFD(s.desc)
	}
	if s.cb != nil {
		s.cb(true)
	}
}
