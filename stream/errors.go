// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

import "github.com/pkg/errors"

// Kind classifies the reason an Error was returned.
type Kind int

// Kinds of errors the stream package can report.
const (
	// KindContractViolation means user code broke an invariant of the
	// stream protocol (e.g. delivering next with no outstanding demand).
	// Fatal in debug builds.
	KindContractViolation Kind = iota
)

// Error is the error type returned by the stream package.
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

// ErrQueueClosed is delivered to every pending Enqueue future when the
// QueueStream's upstream closes or errors before the response arrives.
var ErrQueueClosed = &Error{Kind: KindContractViolation, Op: "queue stream closed", err: errors.New("closed")}
