// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model for display in the
// footer.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears a log notice. Notices are numbered so an
// older fade cannot clear a newer notice.
type logRecordFadeMsg struct {
	sequence int
}

// logRecordFadeDelay is how long log notices stay in the footer.
const logRecordFadeDelay = 5 * time.Second

// TUILogHandler is a slog.Handler that shows records in the chat
// footer instead of writing to the terminal the TUI owns. Records
// below the configured level are dropped, as are records arriving
// before SetProgram.
//
// Handlers derived via WithAttrs/WithGroup share the program, so one
// SetProgram call reaches all of them.
type TUILogHandler struct {
	level slog.Level
	send  *atomic.Pointer[func(tea.Msg)]
	attrs []slog.Attr
}

// NewTUILogHandler creates a handler that delivers records at or above
// level to the program set with SetProgram.
func NewTUILogHandler(level slog.Level) *TUILogHandler {
	return &TUILogHandler{
		level: level,
		send:  &atomic.Pointer[func(tea.Msg)]{},
	}
}

// SetProgram sets the bubbletea program that receives log notices.
// Safe to call from any goroutine.
func (handler *TUILogHandler) SetProgram(program *tea.Program) {
	send := program.Send
	handler.send.Store(&send)
}

func (handler *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends it
// to the program.
func (handler *TUILogHandler) Handle(_ context.Context, record slog.Record) error {
	send := handler.send.Load()
	if send == nil {
		return nil
	}

	var attrParts []string
	for _, attr := range handler.attrs {
		attrParts = append(attrParts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrParts = append(attrParts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
		return true
	})

	summary := record.Message
	if len(attrParts) > 0 {
		summary += " (" + strings.Join(attrParts, ", ") + ")"
	}

	(*send)(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

func (handler *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TUILogHandler{
		level: handler.level,
		send:  handler.send,
		attrs: append(append([]slog.Attr(nil), handler.attrs...), attrs...),
	}
}

// WithGroup returns the handler unchanged: footer notices are flat.
func (handler *TUILogHandler) WithGroup(string) slog.Handler {
	return handler
}
