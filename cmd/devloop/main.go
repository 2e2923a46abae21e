// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Command devloop is a development echo server: source -> map(identity) ->
// sink over a loop.Pool, built on this module's stream pipeline instead of
// a blocking per-connection handler.
package main

import (
	"flag"
	"runtime"

	"github.com/loopwire/loopwire/loop"
	"github.com/loopwire/loopwire/log"
	"github.com/loopwire/loopwire/socket"
	"github.com/loopwire/loopwire/stream"
	"github.com/loopwire/loopwire/tcp"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8888", "address to listen on")
	flag.Parse()

	workers, err := loop.NewPool("devloop", runtime.NumCPU(), 1000)
	if err != nil {
		log.Fatalf("create worker pool: %v", err)
	}
	defer workers.Close()

	ln, err := tcp.Listen(*addr, workers, echo)
	if err != nil {
		log.Fatalf("listen on %s: %v", *addr, err)
	}
	defer ln.Close()

	log.Infof("devloop echoing on %s, current number of workers: %d", ln.Addr(), workers.Len())
	if err := ln.Serve(); err != nil {
		log.Errorf("accept loop stopped: %v", err)
	}
}

// echo wires source -> map(identity) -> sink: every chunk read from the
// connection is written straight back to it, the minimal pipeline shape
// for a request/response TCP service.
func echo(conn *tcp.Conn, dup *socket.Duplex) {
	identity := stream.Map(dup.Source, func(item interface{}) (interface{}, error) {
		return item, nil
	})
	identity.Connect(stream.Drain(stream.DrainOptions{
		OnInput: func(item interface{}) { dup.Write(item.([]byte)) },
		OnError: func(err error) { log.Warnf("devloop connection %s error: %v", conn.RemoteAddr(), err) },
	}))
}
