package caption

import (
	"fmt"
	"testing"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(5)

	h.Push("one")
	h.Push("two")
	h.Push("three")

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	want := []string{"three", "two", "one"}
	for i, w := range want {
		if entries[i].Text != w {
			t.Errorf("entries[%d].Text = %q, want %q", i, entries[i].Text, w)
		}
		if entries[i].ID == "" {
			t.Errorf("entries[%d] has empty ID", i)
		}
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Push(fmt.Sprintf("caption %d", i))
	}

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want capacity 3", len(entries))
	}
	if entries[0].Text != "caption 5" || entries[2].Text != "caption 3" {
		t.Errorf("wrong window after eviction: %v", entries)
	}
}

func TestHistoryDefaultSizeAndClear(t *testing.T) {
	h := NewHistory(0)

	for i := 0; i < DefaultHistorySize+5; i++ {
		h.Push("x")
	}
	if n := len(h.Entries()); n != DefaultHistorySize {
		t.Errorf("len = %d, want default %d", n, DefaultHistorySize)
	}

	h.Clear()
	if n := len(h.Entries()); n != 0 {
		t.Errorf("len after Clear = %d, want 0", n)
	}
}

func TestHistoryEntriesIsACopy(t *testing.T) {
	h := NewHistory(3)
	h.Push("original")

	entries := h.Entries()
	entries[0].Text = "mutated"

	if got := h.Entries()[0].Text; got != "original" {
		t.Errorf("internal entry = %q, want %q", got, "original")
	}
}

func TestFadeColors(t *testing.T) {
	colors := FadeColors("#FFFFFF", 10)
	if len(colors) != 10 {
		t.Fatalf("len = %d, want 10", len(colors))
	}

	// Newest row keeps full brightness.
	if colors[0] != "#ffffff" {
		t.Errorf("colors[0] = %q, want %q", colors[0], "#ffffff")
	}
	// Oldest row: factor 1 - 9/15 = 0.4, so 255*0.4 = 102 = 0x66.
	if colors[9] != "#666666" {
		t.Errorf("colors[9] = %q, want %q", colors[9], "#666666")
	}
}

func TestFadeColorsMonotonicallyDarker(t *testing.T) {
	colors := FadeColors("#80c0ff", 10)
	prev := 256
	for i, c := range colors {
		var r, g, b int
		if _, err := fmt.Sscanf(c, "#%02x%02x%02x", &r, &g, &b); err != nil {
			t.Fatalf("colors[%d] = %q not parseable: %v", i, c, err)
		}
		if r > prev {
			t.Errorf("colors[%d] brighter than colors[%d]", i, i-1)
		}
		prev = r
	}
}

func TestFadeColorsNonHexPassthrough(t *testing.T) {
	tests := []struct {
		name string
		base string
	}{
		{"named_color", "white"},
		{"short_hex", "#FFF"},
		{"bad_digits", "#zzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			colors := FadeColors(tt.base, 4)
			for i, c := range colors {
				if c != tt.base {
					t.Errorf("colors[%d] = %q, want passthrough %q", i, c, tt.base)
				}
			}
		})
	}
}
