// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux

package dirconfig

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/loopwire/loopwire/loop"
)

// pollInterval is how often the fallback watcher re-stats the directory.
// True kqueue EVFILT_VNODE watching would need one registration per watched
// file and a poller event kind this module's poller package does not
// expose (it only models read/write/timer readiness, see internal/poller);
// extending it was out of scope here, so BSD/Darwin fall back to polling
// mtimes on the existing cross-platform timer source instead.
const pollInterval = time.Second

// statWatcher polls dir's directory entries for mtime changes.
type statWatcher struct {
	mu     sync.Mutex
	dir    string
	mtimes map[string]time.Time
	timer  *loop.Source
}

func newWatcher(worker *loop.Loop, dir string, onFile func(path string)) (watcher, error) {
	w := &statWatcher{dir: dir, mtimes: make(map[string]time.Time)}
	w.scan(onFile, false)
	w.timer = loop.NewTimerSource(worker, pollInterval, true, func(isEOF bool) {
		if isEOF {
			return
		}
		w.scan(onFile, true)
	})
	if err := w.timer.Resume(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *statWatcher) scan(onFile func(path string), notify bool) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		prev, seen := w.mtimes[e.Name()]
		mtime := info.ModTime()
		w.mtimes[e.Name()] = mtime
		if notify && (!seen || mtime.After(prev)) {
			onFile(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *statWatcher) Close() error {
	return w.timer.Cancel()
}
