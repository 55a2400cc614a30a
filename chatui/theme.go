// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat TUI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected roster row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Message authors.
	SelfForeground lipgloss.Color
	PeerForeground lipgloss.Color

	// Status lines and the listening indicator.
	StatusForeground lipgloss.Color
	OnlineForeground lipgloss.Color
	OfflineForeground lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	FocusBorderColor lipgloss.Color
	HelpText         lipgloss.Color
	PromptForeground lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	SelfForeground: lipgloss.Color("75"),  // blue
	PeerForeground: lipgloss.Color("114"), // green

	StatusForeground:  lipgloss.Color("220"), // amber
	OnlineForeground:  lipgloss.Color("114"),
	OfflineForeground: lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	FocusBorderColor: lipgloss.Color("75"),
	HelpText:         lipgloss.Color("241"),
	PromptForeground: lipgloss.Color("141"), // light purple
}
