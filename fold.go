package dkim

import "strings"

// foldWidth is the column spec §4.F folds header values at.
const foldWidth = 72

// foldHeaderValue wraps a single-line header value to at most foldWidth
// bytes per line, continuing with "\r\n " (spec §4.F). Scanning is greedy
// from the left: if the remainder fits, emit it whole; otherwise break at
// the rightmost space within the first foldWidth bytes of the remainder,
// or force-advance by foldWidth bytes if no space is found there (spec §9,
// second bullet: this avoids looping forever on a long unbroken token).
//
// If s already contains a "\r\n " sequence, that defines the starting
// prefix and folding resumes from there (spec §4.F last sentence) — the
// function is idempotent on already-folded input for this reason.
func foldHeaderValue(s string) string {
	var b strings.Builder
	if i := strings.LastIndex(s, crlf+" "); i >= 0 {
		i += len(crlf) + 1
		b.WriteString(s[:i])
		s = s[i:]
	}
	for len(s) > foldWidth {
		chunk := s[:foldWidth]
		sp := strings.LastIndexByte(chunk, ' ')
		if sp <= 0 {
			// No usable space in the first foldWidth bytes: force-advance
			// so a long unbroken token can't loop forever (spec §9).
			b.WriteString(chunk)
			b.WriteString(crlf + " ")
			s = s[foldWidth:]
			continue
		}
		b.WriteString(s[:sp])
		b.WriteString(crlf + " ")
		s = s[sp+1:]
	}
	b.WriteString(s)
	return b.String()
}
