//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package metrics provides runtime monitoring counters for the event loop,
// promise, stream and socket layers, useful for performance tuning.
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metrics definitions.
const (
	// Event loop / poller metrics.
	EpollWait = iota
	EpollNoWait
	EpollEvents
	TaskAssigned
	SourceResume
	SourceSuspend
	SourceCancel
	TimerFires
	NextTickRuns
	RunDepthAbandon

	// Promise/future metrics.
	PromiseCompletions
	PromiseAlreadyCompleted
	FutureTimeouts

	// Stream protocol metrics.
	StreamNextDelivered
	StreamDemandRequested
	StreamCancels
	StreamErrors

	// Socket source/sink metrics.
	SocketReadvCalls
	SocketReadvBytes
	SocketWritevCalls
	SocketWritevBytes
	SocketWritevBlocks
	SocketBackpressureSuspends
	SocketConnsCreate
	SocketConnsClose

	// File stream metrics.
	FileReadCalls
	FileReadBytes

	// Directory config watch metrics.
	DirConfigReloads
	DirConfigParseErrors

	Max
)

var metricsArr [Max]atomic.Uint64

// Add metrics counter.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	metricsArr[name].Add(delta)
}

// Get one metric counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return metricsArr[name].Load()
}

// GetAll get all metrics.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metricsArr {
		m[i] = metricsArr[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod shows metric info of duration d from now on.
// It will block d duration, and then prints metrics info.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	latest := GetAll()
	var m [Max]uint64
	for i := range metricsArr {
		m[i] = latest[i] - old[i]
	}
	showAll(m)
}

// ShowMetrics shows metric info in console.
func ShowMetrics() {
	m := GetAll()
	showAll(m)
}

func showAll(m [Max]uint64) {
	fmt.Println("######### loopwire metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	showLoopMetrics(m)
	showPromiseMetrics(m)
	showStreamMetrics(m)
	showSocketMetrics(m)
	fmt.Printf("\n")
}

func showLoopMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# LOOP - number of poll returns (tag:b)", m[EpollWait])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of non-blocking polls (tag:a)", m[EpollNoWait])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of total events", m[EpollEvents])
	if m[EpollWait] > 0 {
		fmt.Printf("%-59s: %.2f%%\n", "# LOOP - a/b * 100%", float32(m[EpollNoWait])*100/float32(m[EpollWait]))
		fmt.Printf("%-59s: %.2f\n", "# LOOP - average events number per poll",
			float32(m[EpollEvents])/float32(m[EpollWait]))
	}
	fmt.Printf("%-59s: %d\n", "# LOOP - number of tasks assigned", m[TaskAssigned])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of source resumes", m[SourceResume])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of source suspends", m[SourceSuspend])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of source cancels", m[SourceCancel])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of timer fires", m[TimerFires])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of next-tick runs", m[NextTickRuns])
	fmt.Printf("%-59s: %d\n", "# LOOP - number of run-depth abandoned cycles", m[RunDepthAbandon])
}

func showPromiseMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# PROMISE - number of completions", m[PromiseCompletions])
	fmt.Printf("%-59s: %d\n", "# PROMISE - number of already-completed drops", m[PromiseAlreadyCompleted])
	fmt.Printf("%-59s: %d\n", "# PROMISE - number of blocking_await timeouts", m[FutureTimeouts])
}

func showStreamMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# STREAM - number of next deliveries", m[StreamNextDelivered])
	fmt.Printf("%-59s: %d\n", "# STREAM - cumulative demand requested", m[StreamDemandRequested])
	fmt.Printf("%-59s: %d\n", "# STREAM - number of cancels", m[StreamCancels])
	fmt.Printf("%-59s: %d\n", "# STREAM - number of errors", m[StreamErrors])
}

func showSocketMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of Readv system calls", m[SocketReadvCalls])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of Writev system calls", m[SocketWritevCalls])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of Writev blocks", m[SocketWritevBlocks])
	if m[SocketReadvCalls] > 0 {
		fmt.Printf("%-59s: %dB\n", "# SOCKET - Readv efficiency", m[SocketReadvBytes]/m[SocketReadvCalls])
	}
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of back-pressure suspends", m[SocketBackpressureSuspends])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of connections created", m[SocketConnsCreate])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of connections closed", m[SocketConnsClose])
}
