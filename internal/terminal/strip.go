package terminal

import "strings"

type stripMode uint8

const (
	stripNormal stripMode = iota
	stripEscape
	stripCSI
)

// Stripper removes ANSI escape sequences from a byte stream one byte at a
// time. Its state carries over between calls so a sequence may span writes.
// The zero value is ready to use.
type Stripper struct {
	mode stripMode
}

// Keep advances the stripper by one byte and reports whether the byte is
// visible output.
func (s *Stripper) Keep(b byte) bool {
	switch s.mode {
	case stripEscape:
		if b == '[' {
			s.mode = stripCSI
		} else {
			s.mode = stripNormal
		}
		return false
	case stripCSI:
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') {
			s.mode = stripNormal
		}
		return false
	}
	if b == 0x1b {
		s.mode = stripEscape
		return false
	}
	return true
}

func (s *Stripper) Reset() {
	s.mode = stripNormal
}

// Strip returns s without ANSI escape sequences.
func Strip(s string) string {
	var (
		st Stripper
		sb strings.Builder
	)
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if st.Keep(s[i]) {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
