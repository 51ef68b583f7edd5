package dkim

import (
	"regexp"
	"strconv"
	"strings"
)

// Signature is a parsed DKIM-Signature tag list (spec §3). It wraps a
// TagList so that signers can build it up tag by tag in a fixed order
// (spec §4.G step 6) while verifiers get named-field access.
type Signature struct {
	Tags *TagList
}

// requiredSignatureTags lists the tags mandatory per spec §3's table.
var requiredSignatureTags = []string{"v", "a", "b", "bh", "d", "h", "s"}

var base64FieldRx = regexp.MustCompile(`^[\s0-9A-Za-z+/]+=*$`)

// ParseSignature parses a raw DKIM-Signature header value as a tag list
// (spec §4.A applied to a Signature).
func ParseSignature(value string) (*Signature, error) {
	tags, err := ParseTagList(value)
	if err != nil {
		return nil, err
	}
	return &Signature{Tags: tags}, nil
}

// Get is shorthand for sig.Tags.Get.
func (sig *Signature) Get(tag string) (string, bool) {
	return sig.Tags.Get(tag)
}

// ValidateSignature enforces the invariants of spec §3 on sig, in the check
// order mandated by spec §4.D: mandatory-presence, v, b base64, bh base64, i
// subdomain, l decimal <=76 digits, q value, t decimal, x decimal and x>=t.
// It returns a *ValidationError describing the first failure.
func ValidateSignature(sig *Signature) error {
	for _, tag := range requiredSignatureTags {
		if _, ok := sig.Get(tag); !ok {
			return validationErrorf("signature missing %s=", tag)
		}
	}

	if v, _ := sig.Get("v"); v != "1" {
		return validationErrorf("unsupported version v=%s", v)
	}

	b, _ := sig.Get("b")
	if !base64FieldRx.MatchString(b) {
		return validationErrorf("malformed base64 in b=")
	}

	bh, _ := sig.Get("bh")
	if !base64FieldRx.MatchString(bh) {
		return validationErrorf("malformed base64 in bh=")
	}

	d, _ := sig.Get("d")
	if i, ok := sig.Get("i"); ok {
		if !isSubdomainOf(i, d) {
			return validationErrorf("i=%s is not a subdomain of d=%s", i, d)
		}
	}

	if l, ok := sig.Get("l"); ok {
		l = strings.TrimSpace(l)
		if len(l) == 0 || len(l) > 76 || !isAllDigits(l) {
			return validationErrorf("malformed l=%s", l)
		}
	}

	if q, ok := sig.Get("q"); ok {
		if strings.TrimSpace(q) != "dns/txt" {
			return validationErrorf("unsupported query method q=%s", q)
		}
	}

	var tVal int64
	var hasT bool
	if t, ok := sig.Get("t"); ok {
		t = strings.TrimSpace(t)
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil || !isAllDigits(t) {
			return validationErrorf("malformed t=%s", t)
		}
		tVal = n
		hasT = true
	}

	if x, ok := sig.Get("x"); ok {
		x = strings.TrimSpace(x)
		xVal, err := strconv.ParseInt(x, 10, 64)
		if err != nil || !isAllDigits(x) {
			return validationErrorf("malformed x=%s", x)
		}
		// spec §9: require t= when x= is present, rather than silently
		// treating a missing t= as 0.
		if !hasT {
			return validationErrorf("x= present without t=")
		}
		if xVal < tVal {
			return validationErrorf("x=%d is before t=%d", xVal, tVal)
		}
	}

	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isSubdomainOf reports whether i ends with d, with either "@" or "."
// immediately preceding the match (spec §3: "i must end with d, with @ or .
// preceding").
func isSubdomainOf(i, d string) bool {
	if !strings.HasSuffix(i, d) {
		return false
	}
	prefixLen := len(i) - len(d)
	if prefixLen == 0 {
		return false
	}
	switch i[prefixLen-1] {
	case '@', '.':
		return true
	default:
		return false
	}
}

// ParseCanonicalization parses a c= value ("hdr[/body]", spec §4.H step 5).
// A missing body name defaults to simple.
func ParseCanonicalization(s string) (header, body Canonicalization, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CanonicalizationSimple, CanonicalizationSimple, nil
	}

	m := canonicalizationRx.FindStringSubmatch(s)
	if m == nil {
		return "", "", validationErrorf("malformed c=%s", s)
	}

	header = Canonicalization(m[1])
	body = CanonicalizationSimple
	if m[2] != "" {
		body = Canonicalization(m[2])
	}
	if !header.valid() || !body.valid() {
		return "", "", validationErrorf("unknown canonicalization in c=%s", s)
	}
	return header, body, nil
}

var canonicalizationRx = regexp.MustCompile(`^(\w+)(?:/(\w+))?$`)
