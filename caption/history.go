package caption

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// DefaultHistorySize is how many committed captions the overlay keeps.
const DefaultHistorySize = 10

// Entry is one committed caption.
type Entry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// History is a fixed-capacity list of the most recent final captions,
// newest first.
type History struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{max: max}
}

// Push records a committed caption as the newest entry, evicting the
// oldest when full.
func (h *History) Push(text string) Entry {
	e := Entry{ID: uuid.NewString(), Text: text}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]Entry{e}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
	return e
}

// Entries returns a copy of the history, newest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear drops all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// FadeColors derives n display colors from a base #RRGGBB color. Index 0
// is the newest row at full brightness; older rows fade toward dark,
// bottoming out at 20% so the oldest line stays readable.
func FadeColors(base string, n int) []string {
	colors := make([]string, n)

	r, g, b, ok := parseHexColor(base)
	if !ok {
		for i := range colors {
			colors[i] = base
		}
		return colors
	}

	for i := 0; i < n; i++ {
		factor := 1.0 - float64(i)/(float64(n)*1.5)
		if factor < 0.2 {
			factor = 0.2
		}
		colors[i] = fmt.Sprintf("#%02x%02x%02x",
			int(float64(r)*factor),
			int(float64(g)*factor),
			int(float64(b)*factor))
	}
	return colors
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	rv, err1 := strconv.ParseInt(s[1:3], 16, 0)
	gv, err2 := strconv.ParseInt(s[3:5], 16, 0)
	bv, err3 := strconv.ParseInt(s[5:7], 16, 0)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return int(rv), int(gv), int(bv), true
}
