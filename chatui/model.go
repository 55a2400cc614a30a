// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/peerchat/lib/chatstore"
	"github.com/bureau-foundation/peerchat/session"
)

// Controller is the session surface the UI drives. *session.Session
// implements it.
type Controller interface {
	Connect(ctx context.Context, peer string) error
	Send(ctx context.Context, text string) bool
	SetNickname(ctx context.Context, peer, name string) error
	Regenerate(ctx context.Context) error
}

var _ Controller = (*session.Session)(nil)

// FocusRegion identifies which part of the screen takes keystrokes.
type FocusRegion int

const (
	// FocusTarget: keystrokes edit the identity to connect to.
	FocusTarget FocusRegion = iota
	// FocusCompose: keystrokes edit the outgoing message.
	FocusCompose
	// FocusRoster: arrows move the roster selection.
	FocusRoster
	// FocusRename: keystrokes edit the nickname prompt.
	FocusRename
	// FocusConfirmRegenerate: the y/n identity regeneration prompt.
	FocusConfirmRegenerate
)

// rosterWidth is the sidebar width including its border.
const rosterWidth = 22

// updateMsg wraps a session Update for the bubbletea loop.
type updateMsg struct {
	update session.Update
}

// sendResultMsg reports whether Send dispatched text.
type sendResultMsg struct {
	text string
	sent bool
}

// controllerErrorMsg carries a failed controller call.
type controllerErrorMsg struct {
	err error
}

// lineKind distinguishes the entries of the conversation pane.
type lineKind int

const (
	lineSelf lineKind = iota
	linePeer
	lineStatus
)

type line struct {
	kind lineKind
	text string
}

// Model is the top-level bubbletea model for the chat TUI.
type Model struct {
	controller Controller
	updates    <-chan session.Update
	theme      Theme
	keys       KeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	identity  string
	listening bool

	roster       []session.RosterEntry
	rosterCursor int

	peer      string
	peerLabel string
	lines     []line

	conversation viewport.Model
	target       textinput.Model
	compose      textinput.Model
	rename       textinput.Model
	renamePeer   string

	focusRegion FocusRegion
	priorFocus  FocusRegion

	// errorNotice is the last controller failure, shown in the help
	// line until the next keystroke.
	errorNotice string

	// logNotice is the last warning from TUILogHandler, shown until
	// it fades.
	logNotice      string
	logLevel       slog.Level
	logNoticeCount int
}

// NewModel creates a Model that drives controller and renders the
// updates arriving on updates.
func NewModel(controller Controller, updates <-chan session.Update) Model {
	target := textinput.New()
	target.Prompt = "Connect to: "
	target.Placeholder = "peer ID"
	target.CharLimit = 64

	compose := textinput.New()
	compose.Prompt = "> "
	compose.Placeholder = "message"

	rename := textinput.New()
	rename.Prompt = "Nickname: "
	rename.CharLimit = 64

	model := Model{
		controller: controller,
		updates:    updates,
		theme:      DefaultTheme,
		keys:       DefaultKeyMap,
		target:     target,
		compose:    compose,
		rename:     rename,
	}
	model.target.Focus()
	return model
}

// Init implements tea.Model. Starts listening for session updates.
func (model Model) Init() tea.Cmd {
	if model.updates == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, listenForUpdate(model.updates))
}

// listenForUpdate returns a tea.Cmd that blocks until an update
// arrives, then delivers it as an updateMsg.
func listenForUpdate(channel <-chan session.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-channel
		if !ok {
			return nil
		}
		return updateMsg{update: update}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		model.errorNotice = ""
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		switch model.focusRegion {
		case FocusConfirmRegenerate:
			return model.handleConfirmKeys(message)
		case FocusRename:
			return model.handleRenameKeys(message)
		}
		return model.handleKeys(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.updatePaneSizes()

	case updateMsg:
		model.applyUpdate(message.update)
		return model, listenForUpdate(model.updates)

	case sendResultMsg:
		// Only clear the field if the user has not started typing the
		// next message.
		if message.sent && model.compose.Value() == message.text {
			model.compose.Reset()
		}

	case controllerErrorMsg:
		model.errorNotice = message.err.Error()

	case logRecordMsg:
		model.logNoticeCount++
		model.logNotice = message.Summary
		model.logLevel = message.Level
		sequence := model.logNoticeCount
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{sequence: sequence}
		})

	case logRecordFadeMsg:
		if message.sequence == model.logNoticeCount {
			model.logNotice = ""
		}
	}
	return model, nil
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.FocusNext):
		return model, model.setFocus(nextFocus(model.focusRegion))

	case key.Matches(message, model.keys.Regenerate):
		model.priorFocus = model.focusRegion
		model.blurInputs()
		model.focusRegion = FocusConfirmRegenerate
		return model, nil

	case key.Matches(message, model.keys.Rename):
		return model.openRename()

	case key.Matches(message, model.keys.Submit):
		return model.submit()
	}

	var cmd tea.Cmd
	switch model.focusRegion {
	case FocusTarget:
		model.target, cmd = model.target.Update(message)
	case FocusCompose:
		model.compose, cmd = model.compose.Update(message)
	case FocusRoster:
		switch {
		case key.Matches(message, model.keys.Up):
			if model.rosterCursor > 0 {
				model.rosterCursor--
			}
		case key.Matches(message, model.keys.Down):
			if model.rosterCursor < len(model.roster)-1 {
				model.rosterCursor++
			}
		}
	}
	return model, cmd
}

// submit acts on Enter for the focused field.
func (model Model) submit() (tea.Model, tea.Cmd) {
	switch model.focusRegion {
	case FocusTarget:
		return model, model.connectCmd(model.target.Value())
	case FocusCompose:
		return model, model.sendCmd(model.compose.Value())
	case FocusRoster:
		if entry, ok := model.selectedEntry(); ok {
			return model, model.connectCmd(entry.Peer)
		}
	}
	return model, nil
}

func (model Model) handleConfirmKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Confirm):
		focusCmd := model.setFocus(model.priorFocus)
		return model, tea.Batch(focusCmd, model.regenerateCmd())
	case key.Matches(message, model.keys.Cancel):
		return model, model.setFocus(model.priorFocus)
	}
	return model, nil
}

func (model Model) openRename() (tea.Model, tea.Cmd) {
	entry, ok := model.selectedEntry()
	if !ok {
		return model, nil
	}
	model.priorFocus = model.focusRegion
	model.renamePeer = entry.Peer
	// Prefill with the current nickname; an unnamed peer is labelled
	// with its raw identity, which is not a nickname.
	if entry.Label != entry.Peer {
		model.rename.SetValue(entry.Label)
	} else {
		model.rename.SetValue("")
	}
	model.rename.CursorEnd()
	return model, model.setFocus(FocusRename)
}

func (model Model) handleRenameKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit):
		peer, name := model.renamePeer, model.rename.Value()
		model.renamePeer = ""
		model.rename.Reset()
		model.setFocus(model.priorFocus)
		return model, model.renameCmd(peer, name)
	case message.Type == tea.KeyEsc:
		model.renamePeer = ""
		model.rename.Reset()
		return model, model.setFocus(model.priorFocus)
	}
	var cmd tea.Cmd
	model.rename, cmd = model.rename.Update(message)
	return model, cmd
}

// setFocus moves keyboard focus to region and focuses the matching
// text input.
func (model *Model) setFocus(region FocusRegion) tea.Cmd {
	model.blurInputs()
	model.focusRegion = region
	switch region {
	case FocusTarget:
		return model.target.Focus()
	case FocusCompose:
		return model.compose.Focus()
	case FocusRename:
		return model.rename.Focus()
	}
	return nil
}

func (model *Model) blurInputs() {
	model.target.Blur()
	model.compose.Blur()
	model.rename.Blur()
}

func nextFocus(region FocusRegion) FocusRegion {
	switch region {
	case FocusTarget:
		return FocusCompose
	case FocusCompose:
		return FocusRoster
	default:
		return FocusTarget
	}
}

func (model Model) selectedEntry() (session.RosterEntry, bool) {
	if model.rosterCursor < 0 || model.rosterCursor >= len(model.roster) {
		return session.RosterEntry{}, false
	}
	return model.roster[model.rosterCursor], true
}

func (model Model) connectCmd(peer string) tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		if err := controller.Connect(context.Background(), peer); err != nil {
			return controllerErrorMsg{err: err}
		}
		return nil
	}
}

func (model Model) sendCmd(text string) tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		return sendResultMsg{text: text, sent: controller.Send(context.Background(), text)}
	}
}

func (model Model) renameCmd(peer, name string) tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		if err := controller.SetNickname(context.Background(), peer, name); err != nil {
			return controllerErrorMsg{err: err}
		}
		return nil
	}
}

func (model Model) regenerateCmd() tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		if err := controller.Regenerate(context.Background()); err != nil {
			return controllerErrorMsg{err: err}
		}
		return nil
	}
}

// applyUpdate folds one session update into the model.
func (model *Model) applyUpdate(update session.Update) {
	switch update := update.(type) {
	case session.IdentityUpdate:
		model.identity = update.Identity
		model.listening = update.Listening

	case session.StatusUpdate:
		model.appendLine(line{kind: lineStatus, text: update.Text})

	case session.RosterUpdate:
		selected, _ := model.selectedEntry()
		model.roster = update.Entries
		model.rosterCursor = model.rosterIndex(selected.Peer)
		if model.rosterCursor < 0 {
			model.rosterCursor = model.rosterIndex(model.peer)
		}
		if model.rosterCursor < 0 {
			model.rosterCursor = 0
		}

	case session.ConversationUpdate:
		model.peer = update.Peer
		model.peerLabel = update.Label
		model.target.SetValue(update.Peer)
		model.target.CursorEnd()
		if index := model.rosterIndex(update.Peer); index >= 0 {
			model.rosterCursor = index
		}
		model.lines = model.lines[:0]
		for _, message := range update.Messages {
			model.lines = append(model.lines, messageLine(message))
		}
		model.refreshConversation()

	case session.MessageUpdate:
		if update.Peer != model.peer {
			return
		}
		model.appendLine(messageLine(update.Message))
	}
}

func messageLine(message chatstore.Message) line {
	if message.FromSelf() {
		return line{kind: lineSelf, text: message.Text}
	}
	return line{kind: linePeer, text: message.Text}
}

func (model *Model) appendLine(entry line) {
	model.lines = append(model.lines, entry)
	model.refreshConversation()
}

func (model Model) rosterIndex(peer string) int {
	if peer == "" {
		return -1
	}
	for index, entry := range model.roster {
		if entry.Peer == peer {
			return index
		}
	}
	return -1
}
