package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/badgemaker/badgemaker/internal/config"
	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/persist"
	"github.com/badgemaker/badgemaker/internal/store"
)

func TestParseProps(t *testing.T) {
	props, err := parseProps([]string{"x=12.5", "text=Hello world", "bold=true", "color=#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if props["x"] != 12.5 {
		t.Errorf("x = %v", props["x"])
	}
	if props["text"] != "Hello world" {
		t.Errorf("text = %v", props["text"])
	}
	if props["bold"] != true {
		t.Errorf("bold = %v", props["bold"])
	}
	if props["color"] != "#ff0000" {
		t.Errorf("color = %v", props["color"])
	}

	if _, err := parseProps([]string{"novalue"}); !errors.Is(err, errUsage) {
		t.Errorf("expected errUsage, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("1700000000001"); err != nil || id != 1700000000001 {
		t.Errorf("parseID = %d, %v", id, err)
	}
	if _, err := parseID("abc"); !errors.Is(err, errUsage) {
		t.Errorf("expected errUsage, got %v", err)
	}
}

func TestHistoryHonoursDisplayLimit(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryDisplayLimit = 2
	st := store.New(store.Options{Loader: persist.NewMemory(), Scheduler: &store.ManualScheduler{}})
	if err := st.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := st.AddShape(document.TypeRectangle, nil); err != nil {
			t.Fatal(err)
		}
	}

	a := &app{cfg: &cfg, store: st}
	var buf bytes.Buffer
	if err := a.history(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 entries:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "*") || !strings.Contains(lines[2], "add") {
		t.Errorf("last entry should be the current add: %q", lines[2])
	}
}
