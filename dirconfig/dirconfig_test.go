// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package dirconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopwire/loopwire/dirconfig"
	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/stream"
)

func runLoop(t *testing.T, l *loop.Loop, stop <-chan struct{}) {
	t.Helper()
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := l.Run(20); err != nil {
				return
			}
		}
	}()
}

func TestSourceDeliversParsedYAMLOnWrite(t *testing.T) {
	l, err := loop.New("dirconfig-test")
	require.NoError(t, err)
	defer l.Close()

	dir := t.TempDir()
	src, err := dirconfig.NewSource(l, dir)
	require.NoError(t, err)
	defer src.Close()

	got := make(chan dirconfig.Reload, 1)
	src.Connect(stream.Drain(stream.DrainOptions{
		OnInput: func(item interface{}) { got <- item.(dirconfig.Reload) },
	}))

	stop := make(chan struct{})
	defer close(stop)
	runLoop(t, l, stop)

	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: demo\nport: 8080\n"), 0o644))

	select {
	case r := <-got:
		require.Equal(t, path, r.Path)
		require.Equal(t, "demo", r.Data["name"])
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestSourceWithoutDemandDeliversNothing(t *testing.T) {
	l, err := loop.New("dirconfig-demand-test")
	require.NoError(t, err)
	defer l.Close()

	dir := t.TempDir()
	src, err := dirconfig.NewSource(l, dir)
	require.NoError(t, err)
	defer src.Close()

	var got []dirconfig.Reload
	src.Connect(stream.Edge{
		OnNext: func(item interface{}) { got = append(got, item.(dirconfig.Reload)) },
	})

	stop := make(chan struct{})
	defer close(stop)
	runLoop(t, l, stop)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("a: 1\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	require.Empty(t, got)
}
