// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loopwire/loopwire/stream"
)

func TestQueueStreamPairsOutputsWithInputsInFIFOOrder(t *testing.T) {
	src := newListStream("resp-a", "resp-b", "resp-c")
	var written []interface{}
	q := stream.NewQueueStream(src, func(output interface{}) {
		written = append(written, output)
	})

	f1 := q.Enqueue("req-1")
	f2 := q.Enqueue("req-2")
	f3 := q.Enqueue("req-3")

	assert.Equal(t, []interface{}{"req-1", "req-2", "req-3"}, written)

	v1, err1 := f1.BlockingAwait(0)
	v2, err2 := f2.BlockingAwait(0)
	v3, err3 := f3.BlockingAwait(0)
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NoError(t, err3)
	assert.Equal(t, "resp-a", v1)
	assert.Equal(t, "resp-b", v2)
	assert.Equal(t, "resp-c", v3)
}

func TestQueueStreamFailsPendingOnUpstreamError(t *testing.T) {
	src := newListStream()
	q := stream.NewQueueStream(src, func(output interface{}) {})

	f := q.Enqueue("req")
	_, err := f.BlockingAwait(0)
	assert.ErrorIs(t, err, stream.ErrQueueClosed)
}

func TestQueueStreamEnqueueAfterCloseFailsImmediately(t *testing.T) {
	src := newListStream()
	q := stream.NewQueueStream(src, func(output interface{}) {})

	_, err := q.Enqueue("first").BlockingAwait(0)
	assert.ErrorIs(t, err, stream.ErrQueueClosed)

	_, err = q.Enqueue("second").BlockingAwait(0)
	assert.ErrorIs(t, err, stream.ErrQueueClosed)
}
