// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package dirconfig is an external collaborator (spec §13): it watches a
// directory for config file writes and emits a demand-driven stream.Edge of
// parsed YAML payloads, one per changed file. Watching is platform-specific
// (see watch_linux.go/watch_other.go); delivery and the demand contract are
// shared here so both backends behave identically to the rest of the
// stream package's sources.
package dirconfig

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/metrics"
	"github.com/loopwire/loopwire/stream"
)

// Reload is one parsed config file delivered downstream.
type Reload struct {
	Path string
	Data map[string]any
}

// watcher is the platform-specific half: it calls the callback passed to
// newWatcher once per detected write to a file under the watched directory,
// from a loop source callback on worker's goroutine, and Close releases its
// OS resources. Source queues the result and delivers it via NextTick.
type watcher interface {
	Close() error
}

// Source watches dir and delivers one Reload per changed *.yaml/*.yml file,
// demand-driven: a downstream that hasn't called request does not get
// handed a reload, matching spec §4's back-pressure contract for every
// other source in this module.
type Source struct {
	mu sync.Mutex

	dir    string
	worker *loop.Loop
	w      watcher

	demand  uint64
	backlog []Reload
	closed  bool

	downstream stream.Edge
}

// NewSource starts watching dir (non-recursive) for config writes. The
// returned Source delivers nothing until Connect is called and downstream
// requests demand.
func NewSource(worker *loop.Loop, dir string) (*Source, error) {
	s := &Source{dir: dir, worker: worker}
	w, err := newWatcher(worker, dir, s.onEvent)
	if err != nil {
		return nil, errors.Wrap(err, "dirconfig watch directory")
	}
	s.w = w
	return s, nil
}

// Connect implements stream.OutputStream.
func (s *Source) Connect(downstream stream.Edge) {
	s.mu.Lock()
	s.downstream = downstream
	s.mu.Unlock()
	if downstream.OnConnect != nil {
		downstream.OnConnect(stream.Upstream{Request: s.request, Cancel: s.cancel})
	}
}

func (s *Source) request(n uint64) {
	s.mu.Lock()
	s.demand = stream.AddDemand(s.demand, n)
	metrics.Add(metrics.StreamDemandRequested, n)
	s.mu.Unlock()
	s.worker.NextTick(s.drain)
}

func (s *Source) cancel() {
	s.Close()
}

// Close stops watching and releases OS resources; idempotent.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.w.Close()
}

// onEvent is called by the platform watcher, from its loop source callback
// on worker's goroutine, once a file under dir has been written. It ignores
// anything but *.yaml/*.yml, reads and parses the file right there, and
// queues the result for delivery the next time worker has free cycles.
func (s *Source) onEvent(path string) {
	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		metrics.Add(metrics.DirConfigParseErrors, 1)
		return
	}
	metrics.Add(metrics.DirConfigReloads, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.backlog = append(s.backlog, Reload{Path: path, Data: data})
	s.mu.Unlock()
	s.worker.NextTick(s.drain)
}

func (s *Source) drain() {
	for {
		s.mu.Lock()
		if s.closed || s.demand == 0 || len(s.backlog) == 0 {
			s.mu.Unlock()
			return
		}
		reload := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.demand--
		d := s.downstream
		s.mu.Unlock()

		metrics.Add(metrics.StreamNextDelivered, 1)
		if d.OnNext != nil {
			d.OnNext(reload)
		}
	}
}
