// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by peerchat tests.
//
// [RequireReceive] and [RequireClosed] wrap the "select with a
// wall-clock safety valve" pattern. They are the only place tests use
// real timeouts; everything under test runs on lib/clock.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil
