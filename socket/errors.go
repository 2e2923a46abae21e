// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package socket

import "github.com/pkg/errors"

// Kind classifies the reason an Error was returned.
type Kind int

// Kinds of errors the socket package can report.
const (
	// KindIO wraps a Descriptor.Read/Write/Prepare failure that isn't
	// would-block, EOF, or a quiet-close signal.
	KindIO Kind = iota
	// KindContractViolation means a Sink received next(buf) while a
	// pending_input buffer was already outstanding.
	KindContractViolation
)

// Error is the error type returned by the socket package.
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

func newError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, err: errors.Wrap(cause, op)}
}

// ErrSinkBusy is delivered when Sink.next(buf) is called while a previous
// buffer is still pending — a StreamContract violation by the caller.
var ErrSinkBusy = &Error{Kind: KindContractViolation, Op: "socket sink: next called with pending_input outstanding"}
