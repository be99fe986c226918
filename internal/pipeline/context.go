package pipeline

// ContextTracker implements grep-style -A/-B/-C context-line printing
// (spec supplement: "Context lines", ported from the teacher's
// pkg/parse/context.go line-buffering algorithm). It operates on already
// formatted record bytes rather than raw text, since the core renders
// every record before a filter decides whether it is "selected"; this
// lets a filtered-out record still surface as context around a selected
// neighbor. A zero-value ContextTracker (Before == After == 0) behaves
// as a plain filter: Next returns msg only when selected.
type ContextTracker struct {
	Before, After int

	pending    [][]byte
	printAfter int
	line       int
	lastPrint  int
}

// Next feeds one formatted record through the tracker in stream order
// and returns the bytes, if any, it selects for output: a "---\n" gap
// separator when a previous context island ended more than one line
// back, any buffered before-context lines, and msg itself.
func (c *ContextTracker) Next(msg []byte, selected bool) [][]byte {
	c.line++
	if selected {
		var out [][]byte
		if c.lastPrint != 0 && (c.After != 0 || c.Before != 0) && c.line-len(c.pending)-c.lastPrint > 1 {
			out = append(out, []byte("---\n"))
		}
		out = append(out, c.pending...)
		out = append(out, msg)
		c.lastPrint = c.line
		c.pending = nil
		c.printAfter = c.After
		return out
	}

	if c.printAfter > 0 {
		c.printAfter--
		c.lastPrint = c.line
		return [][]byte{msg}
	}

	if c.Before > 0 {
		c.pending = append(c.pending, msg)
		if len(c.pending) > c.Before {
			c.pending = c.pending[1:]
		}
	}
	return nil
}
