// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package promise

import "github.com/pkg/errors"

// Kind classifies the reason an Error was returned.
type Kind int

// Kinds of errors a Promise/Future operation can report. Completing an
// already-completed promise is not one of them: per the idempotence
// invariant it is silently dropped, not surfaced as an error.
const (
	// KindTimeout means BlockingAwait's deadline elapsed before completion.
	KindTimeout Kind = iota
)

// Error is the error type returned by the promise package.
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

// ErrTimeout is returned by BlockingAwait when its timeout elapses
// before the future completes. It does not affect the underlying promise:
// a later BlockingAwait on the same future still observes its eventual
// outcome.
var ErrTimeout = &Error{Kind: KindTimeout, Op: "blocking await timed out", err: errors.New("timeout")}
