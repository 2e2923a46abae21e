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

func TestPushStreamBacklogsUntilDemandArrives(t *testing.T) {
	p := stream.NewPushStream()
	p.Push(1)
	p.Push(2)

	var got []int
	var upstream stream.Upstream
	p.Connect(stream.Edge{
		OnConnect: func(up stream.Upstream) { upstream = up },
		OnNext:    func(item interface{}) { got = append(got, item.(int)) },
	})
	assert.Empty(t, got)

	upstream.Request(1)
	assert.Equal(t, []int{1}, got)

	upstream.Request(1)
	assert.Equal(t, []int{1, 2}, got)
}

func TestPushStreamCloseAfterBacklogDrainsFiresOnClose(t *testing.T) {
	p := stream.NewPushStream()
	var closed bool
	p.Connect(stream.Drain(stream.DrainOptions{
		OnClose: func() { closed = true },
	}))

	p.Push(1)
	p.Push(2)
	p.Close()
	assert.True(t, closed)
}

func TestPushStreamPreservesOrderAndMultiplicity(t *testing.T) {
	p := stream.NewPushStream()
	input := []int{1, 2, 2, 3, 1, 1, 5}
	for _, v := range input {
		p.Push(v)
	}

	var got []int
	p.Connect(stream.Drain(stream.DrainOptions{
		OnInput: func(item interface{}) { got = append(got, item.(int)) },
	}))
	p.Close()

	assert.Equal(t, input, got)
}

func TestPushStreamReentrantPushFromOnNextDoesNotDeadlock(t *testing.T) {
	p := stream.NewPushStream()
	var got []int
	pushed := false
	p.Connect(stream.Drain(stream.DrainOptions{
		OnInput: func(item interface{}) {
			got = append(got, item.(int))
			if !pushed {
				pushed = true
				p.Push(99)
			}
		},
	}))

	p.Push(1)
	assert.Equal(t, []int{1, 99}, got)
}
