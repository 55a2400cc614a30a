// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the peerchat terminal user interface, a bubbletea
// program driven by session updates.
//
// The screen has a header with the local identity and whether the
// broker can reach us, a roster sidebar of known peers, the
// conversation pane, a target field for the identity to connect to,
// and a compose field. Status lines from the session are interleaved
// into the conversation pane the way the messages themselves are.
//
// The model never blocks the bubbletea loop: session calls run as
// tea.Cmds and report back as messages. Updates from the session
// arrive on a channel read by a listening command (see [NewModel]).
//
// Keys: Tab cycles focus between target, compose, and roster; Enter
// connects, sends, or opens the selected roster entry; ctrl+r renames
// the selected roster entry; ctrl+g regenerates the local identity
// after a y/n confirmation; ctrl+c quits.
package chatui
