// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package stream

// DrainOptions configures Drain. Demand is the amount requested once
// upstream connects; zero means MaxDemand (request everything upstream can
// produce).
type DrainOptions struct {
	OnInput func(item interface{})
	OnError func(err error)
	OnClose func()
	Demand  uint64
}

// Drain is the terminal consumer: it converts plain closures into a stream
// Edge with no downstream of its own.
func Drain(opts DrainOptions) Edge {
	demand := opts.Demand
	if demand == 0 {
		demand = MaxDemand
	}
	return Edge{
		OnConnect: func(up Upstream) {
			if up.Request != nil {
				up.Request(demand)
			}
		},
		OnNext: func(item interface{}) {
			if opts.OnInput != nil {
				opts.OnInput(item)
			}
		},
		OnError: func(err error) {
			if opts.OnError != nil {
				opts.OnError(err)
			}
		},
		OnClose: func() {
			if opts.OnClose != nil {
				opts.OnClose()
			}
		},
	}
}
