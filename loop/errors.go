// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package loop

import "github.com/pkg/errors"

// Kind classifies the reason an Error was returned, mirroring the taxonomy
// every package in this module follows for its own sentinel errors.
type Kind int

// Kinds of errors a Loop/Source operation can report.
const (
	// KindLoopInit means the loop failed to acquire its kernel notifier handle.
	KindLoopInit Kind = iota
	// KindRegistration means a source failed to register/modify/delete with
	// the kernel notifier.
	KindRegistration
	// KindIO means a poll cycle failed for a reason other than EINTR.
	KindIO
	// KindInvalidTransition means a Source state transition was requested
	// that the state machine does not allow (e.g. resume after cancel).
	KindInvalidTransition
)

// Error is the error type returned by the loop package.
type Error struct {
	Kind Kind
	Op   string
	err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.Op + ": " + e.err.Error()
	}
	return e.Op
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is a loop *Error of the same Kind, so
// errors.Is(err, ErrLoopInit) matches any loop-init failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, err: errors.Wrap(cause, op)}
}

// ErrLoopInit is returned by New when the kernel notifier could not be created.
var ErrLoopInit = &Error{Kind: KindLoopInit, Op: "loop init failed"}

// ErrInvalidTransition is returned by Source.Resume/Suspend/Cancel when
// called from a terminal or otherwise disallowed state.
var ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Op: "invalid source state transition"}
