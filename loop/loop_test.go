// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package loop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loopwire/loopwire/loop"
)

func TestNewAndClose(t *testing.T) {
	l, err := loop.New("test-loop")
	assert.Nil(t, err)
	assert.NotNil(t, l)
	assert.Equal(t, "test-loop", l.Label())
	assert.Nil(t, l.Close())
}

func TestRunSingleCycleReturnsOnEmptyTimeout(t *testing.T) {
	l, err := loop.New("test-loop")
	assert.Nil(t, err)
	defer l.Close()

	done := make(chan struct{})
	go func() {
		assert.Nil(t, l.Run(10))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return within timeout")
	}
}

func TestTriggerWakesRun(t *testing.T) {
	l, err := loop.New("test-loop")
	assert.Nil(t, err)
	defer l.Close()

	ran := make(chan struct{})
	go func() {
		assert.Nil(t, l.Trigger(func() error {
			close(ran)
			return nil
		}))
	}()

	done := make(chan struct{})
	go func() {
		assert.Nil(t, l.Run(-1))
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("triggered job did not run")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not wake up on Trigger")
	}
}

func TestNextTick(t *testing.T) {
	l, err := loop.New("test-loop")
	assert.Nil(t, err)
	defer l.Close()

	ran := make(chan struct{})
	l.NextTick(func() { close(ran) })
	go func() { _ = l.Run(-1) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("next-tick callback did not run")
	}
}
