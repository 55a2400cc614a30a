// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// capture points handler at a slice instead of a running program.
func capture(handler *TUILogHandler) *[]tea.Msg {
	var messages []tea.Msg
	send := func(message tea.Msg) { messages = append(messages, message) }
	handler.send.Store(&send)
	return &messages
}

func TestTUILogHandlerDropsBeforeProgram(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	// No program yet: must not panic.
	slog.New(handler).Warn("early")
}

func TestTUILogHandlerFormatsAndFilters(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	messages := capture(handler)

	logger := slog.New(handler).With("component", "session")
	logger.Info("too quiet")
	logger.Warn("dial failed", "peer", "PEERA001")

	if len(*messages) != 1 {
		t.Fatalf("got %d messages, want 1 (info filtered)", len(*messages))
	}
	record := (*messages)[0].(logRecordMsg)
	if record.Summary != "dial failed (component=session, peer=PEERA001)" {
		t.Errorf("summary = %q", record.Summary)
	}
	if record.Level != slog.LevelWarn {
		t.Errorf("level = %v", record.Level)
	}
	if !handler.Enabled(context.Background(), slog.LevelError) || handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled does not honour the level")
	}
}

func TestLogNoticeFades(t *testing.T) {
	model := newTestModel(&fakeController{})

	next, _ := model.Update(logRecordMsg{Summary: "polling failed", Level: slog.LevelWarn})
	model = next.(Model)
	if !strings.Contains(model.View(), "WARN: polling failed") {
		t.Fatal("log notice not shown")
	}

	// A second notice outlives the first one's fade.
	next, _ = model.Update(logRecordMsg{Summary: "still failing", Level: slog.LevelError})
	model = next.(Model)
	next, _ = model.Update(logRecordFadeMsg{sequence: 1})
	model = next.(Model)
	if !strings.Contains(model.View(), "ERROR: still failing") {
		t.Error("stale fade cleared the newer notice")
	}

	next, _ = model.Update(logRecordFadeMsg{sequence: 2})
	model = next.(Model)
	if strings.Contains(model.View(), "still failing") {
		t.Error("notice survived its fade")
	}
}
