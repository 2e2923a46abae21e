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

func TestChunkingStreamReassemblesFixedSizeChunks(t *testing.T) {
	src := newListStream(
		[]int{1, 2}, []int{3}, []int{4, 5, 6}, []int{7, 8}, []int{9, 10}, []int{11, 12, 13, 14, 15},
	)
	chunked := stream.ChunkingStream[int](src, nil, 3)

	var got [][]int
	closed := false
	chunked.Connect(stream.Drain(stream.DrainOptions{
		OnInput: func(item interface{}) { got = append(got, item.([]int)) },
		OnClose: func() { closed = true },
	}))

	assert.Equal(t, [][]int{
		{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12}, {13, 14, 15},
	}, got)
	assert.True(t, closed)
}

func TestMapRequestUINTMaxNeverOverdelivers(t *testing.T) {
	src := newListStream(1, 2, 3)
	mapped := stream.Map(src, func(item interface{}) (interface{}, error) { return item, nil })

	var got []int
	mapped.Connect(stream.Edge{
		OnConnect: func(up stream.Upstream) { up.Request(stream.MaxDemand) },
		OnNext:    func(item interface{}) { got = append(got, item.(int)) },
	})
	assert.Equal(t, []int{1, 2, 3}, got)
}
