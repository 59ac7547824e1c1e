package render

import "strings"

// Tail retains the last n lines of encoder output for failure diagnostics.
type Tail struct {
	limit int
	lines []string
}

// NewTail returns a tail bounded to limit lines. A limit <= 0 keeps one line.
func NewTail(limit int) *Tail {
	if limit <= 0 {
		limit = 1
	}
	return &Tail{limit: limit}
}

// Append records a line, evicting the oldest once the bound is reached.
func (t *Tail) Append(line string) {
	if len(t.lines) == t.limit {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.limit-1]
	}
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the retained lines, oldest first.
func (t *Tail) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// String joins the retained lines with newlines.
func (t *Tail) String() string {
	return strings.Join(t.lines, "\n")
}
