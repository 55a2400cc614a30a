// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Fixed chrome: header, target field, compose field, help line, plus
// the top and bottom border of the body.
const chromeLines = 6

// updatePaneSizes fits the text inputs and the conversation viewport
// to the terminal.
func (model *Model) updatePaneSizes() {
	conversationWidth := model.width - rosterWidth - 2
	if conversationWidth < 10 {
		conversationWidth = 10
	}
	bodyHeight := model.height - chromeLines
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	model.conversation.Width = conversationWidth
	model.conversation.Height = bodyHeight

	inputWidth := model.width - 20
	if inputWidth < 10 {
		inputWidth = 10
	}
	model.target.Width = inputWidth
	model.compose.Width = inputWidth
	model.rename.Width = inputWidth

	model.refreshConversation()
}

// refreshConversation re-renders the conversation lines into the
// viewport and scrolls to the newest line.
func (model *Model) refreshConversation() {
	width := model.conversation.Width
	if width <= 0 {
		width = 80
	}
	rendered := make([]string, 0, len(model.lines))
	for _, entry := range model.lines {
		rendered = append(rendered, ansi.Wrap(model.renderLine(entry), width, ""))
	}
	model.conversation.SetContent(strings.Join(rendered, "\n"))
	model.conversation.GotoBottom()
}

func (model Model) renderLine(entry line) string {
	switch entry.kind {
	case lineSelf:
		author := lipgloss.NewStyle().Foreground(model.theme.SelfForeground).Bold(true).Render("You")
		return author + ": " + entry.text
	case linePeer:
		label := model.peerLabel
		if label == "" {
			label = model.peer
		}
		author := lipgloss.NewStyle().Foreground(model.theme.PeerForeground).Bold(true).Render(label)
		return author + ": " + entry.text
	default:
		return lipgloss.NewStyle().Foreground(model.theme.StatusForeground).Render("Server: " + entry.text)
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Starting..."
	}

	sections := []string{
		model.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, model.renderRoster(), model.renderConversation()),
		model.renderInput(model.target.View(), model.focusRegion == FocusTarget),
		model.renderInput(model.compose.View(), model.focusRegion == FocusCompose),
		model.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render("peerchat")

	identity := model.identity
	if identity == "" {
		identity = "…"
	}
	yourID := "Your ID: " + lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render(identity)

	var presence string
	if model.listening {
		presence = lipgloss.NewStyle().Foreground(model.theme.OnlineForeground).Render("● reachable")
	} else {
		presence = lipgloss.NewStyle().Foreground(model.theme.OfflineForeground).Render("○ connecting to broker")
	}

	header := title + "  " + yourID + "  " + presence
	return ansi.Truncate(header, model.width, "…")
}

func (model Model) renderRoster() string {
	innerWidth := rosterWidth - 2
	height := model.conversation.Height

	normal := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	selected := lipgloss.NewStyle().
		Foreground(model.theme.SelectedForeground).
		Background(model.theme.SelectedBackground).
		Bold(true)
	current := lipgloss.NewStyle().Foreground(model.theme.PeerForeground)

	var rows []string
	if len(model.roster) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("no peers yet"))
	}
	for index, entry := range model.roster {
		label := ansi.Truncate(entry.Label, innerWidth-2, "…")
		marker := "  "
		if entry.Peer == model.peer {
			marker = "▸ "
		}
		row := marker + label
		switch {
		case index == model.rosterCursor && model.focusRegion == FocusRoster:
			row = selected.Width(innerWidth).Render(row)
		case entry.Peer == model.peer:
			row = current.Render(row)
		default:
			row = normal.Render(row)
		}
		rows = append(rows, row)
	}
	if len(rows) > height {
		rows = rows[:height]
	}

	border := model.theme.BorderColor
	if model.focusRegion == FocusRoster {
		border = model.theme.FocusBorderColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(innerWidth).
		Height(height).
		Render(strings.Join(rows, "\n"))
}

func (model Model) renderConversation() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(model.theme.BorderColor).
		Render(model.conversation.View())
}

func (model Model) renderInput(view string, focused bool) string {
	if !focused {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(view)
	}
	return view
}

// renderFooter shows the active prompt, the last error, or the key
// help.
func (model Model) renderFooter() string {
	prompt := lipgloss.NewStyle().Foreground(model.theme.PromptForeground).Bold(true)
	switch model.focusRegion {
	case FocusConfirmRegenerate:
		return prompt.Render("Regenerate your ID? Old one will stop working. (y/n)")
	case FocusRename:
		return prompt.Render("Rename "+model.renamePeer+": ") + model.rename.View()
	}
	if model.errorNotice != "" {
		return lipgloss.NewStyle().Foreground(model.theme.OfflineForeground).Render(
			ansi.Truncate("error: "+model.errorNotice, model.width, "…"))
	}
	if model.logNotice != "" {
		color := model.theme.StatusForeground
		if model.logLevel >= slog.LevelError {
			color = model.theme.OfflineForeground
		}
		return lipgloss.NewStyle().Foreground(color).Render(
			ansi.Truncate(model.logLevel.String()+": "+model.logNotice, model.width, "…"))
	}

	bindings := []struct{ keys, help string }{
		{model.keys.FocusNext.Help().Key, model.keys.FocusNext.Help().Desc},
		{model.keys.Submit.Help().Key, model.keys.Submit.Help().Desc},
		{model.keys.Rename.Help().Key, model.keys.Rename.Help().Desc},
		{model.keys.Regenerate.Help().Key, model.keys.Regenerate.Help().Desc},
		{model.keys.Quit.Help().Key, model.keys.Quit.Help().Desc},
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		parts = append(parts, binding.keys+" "+binding.help)
	}
	help := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	return help.Render(ansi.Truncate(strings.Join(parts, " · "), model.width, "…"))
}
