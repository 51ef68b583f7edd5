package dkim

import "strings"

// Canonicalization names one of the two normalization schemes a signer or
// verifier applies before hashing (spec §4.C). The zero value is invalid;
// use CanonicalizationSimple or CanonicalizationRelaxed.
type Canonicalization string

const (
	CanonicalizationSimple  Canonicalization = "simple"
	CanonicalizationRelaxed Canonicalization = "relaxed"
)

func (c Canonicalization) valid() bool {
	return c == CanonicalizationSimple || c == CanonicalizationRelaxed
}

// CanonicalizeHeaders applies scheme c to every header in headers,
// preserving order. It never mutates the input slice.
func CanonicalizeHeaders(c Canonicalization, headers []Header) ([]Header, error) {
	out := make([]Header, len(headers))
	switch c {
	case CanonicalizationSimple:
		copy(out, headers)
	case CanonicalizationRelaxed:
		for i, h := range headers {
			out[i] = Header{
				Name:  asciiLower(h.Name),
				Value: canonicalizeRelaxedHeaderValue(h.Value),
			}
		}
	default:
		return nil, &InternalError{Reason: "unknown header canonicalization " + string(c)}
	}
	return out, nil
}

// CanonicalizeBody applies scheme c to a message body (spec §4.C).
func CanonicalizeBody(c Canonicalization, body string) (string, error) {
	switch c {
	case CanonicalizationSimple:
		return canonicalizeSimpleBody(body), nil
	case CanonicalizationRelaxed:
		return canonicalizeRelaxedBody(body), nil
	default:
		return "", &InternalError{Reason: "unknown body canonicalization " + string(c)}
	}
}

func canonicalizeSimpleBody(body string) string {
	return strings.TrimRight(body, "\r\n") + crlf
}

func canonicalizeRelaxedBody(body string) string {
	lines := strings.Split(body, crlf)
	for i, line := range lines {
		lines[i] = collapseWS(strings.TrimRight(line, " \t"))
	}
	joined := strings.Join(lines, crlf)
	return strings.TrimRight(joined, "\r\n") + crlf
}

func canonicalizeRelaxedHeaderValue(v string) string {
	v = strings.ReplaceAll(v, crlf, "")
	v = collapseWS(v)
	v = strings.TrimSpace(v)
	return v + crlf
}

// collapseWS replaces every maximal run of ASCII space/tab with a single
// space.
func collapseWS(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			if !inWS {
				b.WriteByte(' ')
				inWS = true
			}
			continue
		}
		b.WriteByte(c)
		inWS = false
	}
	return b.String()
}

// asciiLower lowercases only ASCII A-Z, per spec §3: "the only case folding
// is ASCII a-z/A-Z".
func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
