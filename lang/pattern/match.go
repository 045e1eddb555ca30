package pattern

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// A Capture records the span matched by a numbered group. Offsets are
// byte positions into the haystack.
type Capture struct {
	Group      uint8
	Start, End int
}

// Match searches for the earliest leftmost match of p in haystack by
// retrying at each code point offset. On success it returns the
// captures recorded during the match; a given group number captures at
// most once, the first successful capture winning.
func (p *Pattern) Match(haystack string) ([]Capture, bool) {
	m := &matcher{ignoreCase: p.ast.IgnoreCase}

	for left, width := 0, 0; left < len(haystack); left += width {
		_, width = utf8.DecodeRuneInString(haystack[left:])

		m.view = haystack[left:]
		m.right = 0
		m.captures = m.captures[:0]

		if m.checkGroup(p.ast.Root) {
			caps := make([]Capture, len(m.captures))
			for i, c := range m.captures {
				caps[i] = Capture{Group: c.Group, Start: c.Start + left, End: c.End + left}
			}
			return caps, true
		}
	}
	return nil, false
}

// matcher holds the state of one match attempt: the current view into
// the haystack, a monotonically advancing right offset within it, and
// the accumulated captures. A checkpoint snapshots right and the
// captures length; recall rewinds both exactly.
type matcher struct {
	view       string
	right      int
	captures   []Capture
	ignoreCase bool
}

type checkpoint struct {
	right    int
	captures int
}

func (m *matcher) mark() checkpoint {
	return checkpoint{right: m.right, captures: len(m.captures)}
}

func (m *matcher) recall(here checkpoint) {
	m.right = here.right
	m.captures = m.captures[:here.captures]
}

// capture records the span for a group number unless one was already
// recorded for it during this attempt.
func (m *matcher) capture(num uint8, here checkpoint) {
	for _, c := range m.captures {
		if c.Group == num {
			return
		}
	}
	m.captures = append(m.captures, Capture{Group: num, Start: here.right, End: m.right})
}

// getChar consumes one code point from the view.
func (m *matcher) getChar() (rune, bool) {
	if m.right >= len(m.view) {
		return 0, false
	}
	rn, sz := utf8.DecodeRuneInString(m.view[m.right:])
	m.right += sz
	return rn, true
}

func (m *matcher) checkChar(needle rune) bool {
	ch, ok := m.getChar()
	if !ok {
		return false
	}
	if m.ignoreCase {
		return eqIgnoreCase(needle, ch)
	}
	return needle == ch
}

func (m *matcher) checkStr(s string) bool {
	if m.ignoreCase {
		for _, rn := range s {
			if !m.checkChar(rn) {
				return false
			}
		}
		return true
	}
	if strings.HasPrefix(m.view[m.right:], s) {
		m.right += len(s)
		return true
	}
	return false
}

// checkGroup takes a checkpoint, tries each branch in order, and
// records the group's capture on the first success. On failure the
// checkpoint is restored, unwinding any partial captures.
func (m *matcher) checkGroup(g *Group) bool {
	here := m.mark()
	for _, br := range g.Branches {
		if m.checkBranch(br) {
			m.capture(g.Number, here)
			return true
		}
		m.recall(here)
	}
	return false
}

func (m *matcher) checkBranch(br *Branch) bool {
	for _, lf := range br.Leaves {
		if !m.checkLeaf(lf) {
			return false
		}
	}
	return true
}

func (m *matcher) checkLeaf(lf Leaf) bool {
	switch lf := lf.(type) {
	case AnchorStart:
		return m.right == 0
	case AnchorEnd:
		return m.right == len(m.view)
	case Raw:
		return m.checkStr(lf.Text)
	case *Class:
		return m.checkClass(lf)
	case *Group:
		return m.checkGroup(lf)
	case *Repeat:
		return m.repeat(lf.Prefix, lf.Times, lf.Suffix)
	default:
		// Local and Global cannot appear in a compiled pattern.
		return false
	}
}

// repeat implements greedy matching with giveback. The prefix is
// matched exactly min times, then greedily one bite at a time until it
// fails or max is reached, each optional bite pushing a checkpoint.
// The suffix is then attempted at the exhausted position; on failure
// checkpoints are popped from the top, giving one bite back per pop,
// until the suffix succeeds or the minimum is reached.
func (m *matcher) repeat(prefix Leaf, times Times, suffix *Branch) bool {
	var min, max int
	switch times.Kind {
	case OneOrZero:
		min, max = 0, 1
	case ZeroOrMore:
		min, max = 0, len(m.view)-m.right
	case OneOrMore:
		min, max = 1, len(m.view)-m.right
	case Count:
		min, max = times.N, times.N
	}

	for i := 0; i < min; i++ {
		if !m.checkLeaf(prefix) {
			return false
		}
	}

	var stack []checkpoint
	for i := min; i < max; i++ {
		cp := m.mark()
		if !m.checkLeaf(prefix) {
			m.recall(cp)
			break
		}
		stack = append(stack, cp)
	}

	for {
		cp := m.mark()
		if m.checkBranch(suffix) {
			return true
		}
		m.recall(cp)

		if len(stack) == 0 {
			return false
		}
		m.recall(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
}

func (m *matcher) checkClass(c *Class) bool {
	ch, ok := m.getChar()
	if !ok {
		return false
	}

	switch c.Kind {
	case Dot:
		return true
	case Digit:
		return unicode.IsDigit(ch)
	case Word:
		return unicode.IsLetter(ch)
	case Space:
		return unicode.IsSpace(ch)
	default:
		if c.Invert {
			return !c.Members[ch]
		}
		return c.Members[ch]
	}
}

// eqIgnoreCase compares two code points by their unicode.ToLower
// mappings.
func eqIgnoreCase(lhs, rhs rune) bool {
	if lhs == rhs {
		return true
	}
	return unicode.ToLower(lhs) == unicode.ToLower(rhs)
}
