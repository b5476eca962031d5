// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package monitorui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rewind-foundation/rewind/remote"
	"github.com/rewind-foundation/rewind/store"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	server := &remote.Server{Address: "127.0.0.1:0"}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(server.Stop)

	model := NewModel(server, t.TempDir())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func TestView_NoSessions(t *testing.T) {
	model := newTestModel(t)

	view := model.View()
	if !strings.Contains(view, "rewind monitor") {
		t.Fatalf("view missing header:\n%s", view)
	}
	if !strings.Contains(view, "@@INIT") {
		t.Fatalf("view missing baseline row:\n%s", view)
	}
	if !strings.Contains(view, "waiting for an application") {
		t.Fatalf("view missing empty-state message:\n%s", view)
	}
}

func TestCursor_ClampedWithoutSessions(t *testing.T) {
	model := newTestModel(t)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model = updated.(Model)
	if model.cursor != 0 {
		t.Fatalf("cursor = %d, want 0 (only the baseline exists)", model.cursor)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model = updated.(Model)
	if model.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", model.cursor)
	}
}

func TestJump_WithoutSessionReportsError(t *testing.T) {
	model := newTestModel(t)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if !model.statusError || model.status == "" {
		t.Fatalf("status = %q (error=%v), want no-application error", model.status, model.statusError)
	}
}

func TestQuitKey(t *testing.T) {
	model := newTestModel(t)
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("command did not produce tea.QuitMsg")
	}
}

func TestNewestArchive(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, age time.Duration) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}
	write("old.rewind", time.Hour)
	write("new.rewind", time.Minute)
	write("ignored.txt", 0)

	got, err := newestArchive(dir)
	if err != nil {
		t.Fatalf("newestArchive: %v", err)
	}
	if filepath.Base(got) != "new.rewind" {
		t.Fatalf("newestArchive = %q, want new.rewind", got)
	}

	if _, err := newestArchive(t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(0); strings.TrimSpace(got) != "" {
		t.Fatalf("FormatTimestamp(0) = %q, want blanks", got)
	}
	if got := FormatTimestamp(1700000000000); len(got) != 8 {
		t.Fatalf("FormatTimestamp = %q, want HH:MM:SS", got)
	}
}

func TestRenderState(t *testing.T) {
	if got := RenderState(nil); got != "{}" {
		t.Fatalf("RenderState(nil) = %q", got)
	}
	got := RenderState(store.Snapshot{"count": float64(2)})
	if !strings.Contains(got, `"count": 2`) {
		t.Fatalf("RenderState = %q", got)
	}
}
