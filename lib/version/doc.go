// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of peerchat and peerchat-broker
// is running. Both binaries print it for --version, and the client
// logs it at startup so a log file can be matched to a build.
//
// The values come from -ldflags -X at link time. Development builds
// and tests see the placeholders ("unknown", "0.1.0-dev").
package version
