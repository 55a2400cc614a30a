// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that waits on time (the connection liveness timeout, signaling
// poll loops, signal expiry in the broker) takes a [Clock] instead of
// calling the time package directly. Production wiring uses [Real];
// tests use [Fake], whose time moves only when [FakeClock.Advance] is
// called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := session.New(session.Config{Clock: fake, ...})
//	// ... start an attempt ...
//	fake.WaitForTimers(1)
//	fake.Advance(4 * time.Second)
//
// WaitForTimers closes the race between a goroutine registering a timer
// and the test advancing past it.
package clock
