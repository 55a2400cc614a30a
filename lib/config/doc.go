// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for peerchat.
//
// Configuration is loaded from a single file named by either the
// PEERCHAT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). When neither is given the binaries run on
// [Default], which is enough for two clients on one machine talking
// through a local broker.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path and URL fields after
// loading: ${HOME}, ${PEERCHAT_DATA}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// This package depends on no other peerchat packages.
package config
