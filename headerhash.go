package dkim

import (
	"hash"
	"strings"
)

// headerPicker implements the per-name, most-recent-first selection with a
// per-name cursor described in spec §4.E.1. It is scoped to a single hash
// computation; no state survives it (spec §5: the core is stateless).
type headerPicker struct {
	headers   []Header
	lastIndex map[string]int
}

func newHeaderPicker(headers []Header) *headerPicker {
	return &headerPicker{
		headers:   headers,
		lastIndex: make(map[string]int),
	}
}

// pick returns the next header matching name (case-insensitively),
// scanning backward from the name's current cursor, and advances the
// cursor. It returns false if no header with that name remains.
func (p *headerPicker) pick(name string) (Header, bool) {
	lower := asciiLower(name)
	start, ok := p.lastIndex[lower]
	if !ok {
		start = len(p.headers)
	}

	for i := start - 1; i >= 0; i-- {
		if asciiLower(p.headers[i].Name) == lower {
			p.lastIndex[lower] = i
			return p.headers[i], true
		}
	}
	p.lastIndex[lower] = 0
	return Header{}, false
}

// composeHeaderHash feeds the digest with the signed-header sequence
// selected by includeHeaders out of (already canonicalized) headers,
// followed by the canonicalized DKIM-Signature header field itself with
// its b= value erased (spec §4.E).
func composeHeaderHash(h hash.Hash, headerCan Canonicalization, headers []Header, includeHeaders []string, sigFieldName, sigFieldValue string, bValue string) error {
	picker := newHeaderPicker(headers)

	var signed []Header
	for _, name := range includeHeaders {
		if hdr, ok := picker.pick(name); ok {
			signed = append(signed, hdr)
		}
	}

	sigValueNoB := removeSignatureValue(sigFieldValue, bValue)
	canSig, err := CanonicalizeHeaders(headerCan, []Header{{Name: sigFieldName, Value: sigValueNoB}})
	if err != nil {
		return err
	}
	signed = append(signed, Header{Name: canSig[0].Name, Value: strings.TrimRight(canSig[0].Value, crlf)})

	for i, hdr := range signed {
		value := hdr.Value
		if i < len(signed)-1 {
			value = strings.TrimRight(value, " \t\r\n")
		}
		if _, err := h.Write([]byte(hdr.Name)); err != nil {
			return err
		}
		if _, err := h.Write([]byte(":")); err != nil {
			return err
		}
		if _, err := h.Write([]byte(value)); err != nil {
			return err
		}
	}
	return nil
}

// removeSignatureValue erases the first occurrence of b's value within the
// DKIM-Signature header's raw value (spec §4.E step 2). b may be empty
// during signing, in which case an already-empty b= is left untouched.
func removeSignatureValue(sigValue, b string) string {
	if b == "" {
		return sigValue
	}
	return strings.Replace(sigValue, b, "", 1)
}
