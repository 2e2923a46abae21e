// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package dirconfig

import (
	"bytes"
	"path/filepath"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/loopwire/loopwire/loop"
)

// eventBufferSize sizes the read(2) buffer generously enough for a batch of
// inotify_event structs plus their variable-length names, following the
// same sizing the notify package's inotify backend uses.
const eventBufferSize = 64 * (unix.SizeofInotifyEvent + unix.PathMax + 1)

const watchMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO

// inotifyWatcher watches one directory (non-recursive) via inotify(7),
// registered as a plain loop.Source Read direction source: an inotify
// instance's fd is a regular pollable fd, so no poller changes were needed
// to wire it in here (unlike the BSD kqueue EVFILT_VNODE path, which would
// need per-vnode registration the poller package does not expose — see
// watch_other.go).
type inotifyWatcher struct {
	fd  int
	dir string
	src *loop.Source
	buf [eventBufferSize]byte
}

func newWatcher(worker *loop.Loop, dir string, onFile func(path string)) (watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "inotify init")
	}
	if _, err := unix.InotifyAddWatch(fd, dir, watchMask); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "inotify add watch")
	}
	w := &inotifyWatcher{fd: fd, dir: dir}
	w.src = loop.NewReadSource(worker, fd, func(isEOF bool) {
		if isEOF {
			return
		}
		w.drainEvents(onFile)
	})
	if err := w.src.Resume(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return w, nil
}

func (w *inotifyWatcher) drainEvents(onFile func(path string)) {
	for {
		n, err := unix.Read(w.fd, w.buf[:])
		if err != nil || n < unix.SizeofInotifyEvent {
			return
		}
		for pos := 0; pos+unix.SizeofInotifyEvent <= n; {
			raw := (*unix.InotifyEvent)(unsafe.Pointer(&w.buf[pos]))
			pos += unix.SizeofInotifyEvent
			name := ""
			if raw.Len > 0 {
				end := pos + int(raw.Len)
				name = string(bytes.TrimRight(w.buf[pos:end], "\x00"))
				pos = end
			}
			if name == "" {
				continue
			}
			onFile(filepath.Join(w.dir, name))
		}
	}
}

func (w *inotifyWatcher) Close() error {
	_ = w.src.Cancel()
	return unix.Close(w.fd)
}
