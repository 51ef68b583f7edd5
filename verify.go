package dkim

import (
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
)

// VerifyOptions configures Verify (spec §4.H).
type VerifyOptions struct {
	Logger   Logger
	Resolver Resolver
	Keys     KeyAdapter
}

// Verify checks the first DKIM-Signature header of a message (spec §1 /
// §4.H non-goal: "only the first DKIM-Signature header is verified"). It
// never returns an error: every failure that isn't a caller bug collapses
// to false, with the reason recorded via opts.Logger.
func Verify(raw []byte, opts VerifyOptions) bool {
	logger := opts.Logger
	resolver := opts.Resolver
	if resolver == nil {
		resolver = DefaultResolver
	}
	keys := opts.Keys
	if keys == nil {
		keys = StdKeyAdapter{}
	}

	fail := func(format string, args ...interface{}) bool {
		logger.logf(format, args...)
		return false
	}

	// Step 1.
	msg, err := ParseMessage(raw)
	if err != nil {
		return fail("dkim: verify: %v", err)
	}

	// Step 2.
	var sigHeader *Header
	for i := range msg.Headers {
		if asciiLower(msg.Headers[i].Name) == "dkim-signature" {
			sigHeader = &msg.Headers[i]
			break
		}
	}
	if sigHeader == nil {
		return fail("dkim: verify: no DKIM-Signature header")
	}

	// Step 3.
	sig, err := ParseSignature(sigHeader.Value)
	if err != nil {
		return fail("dkim: verify: %v", err)
	}

	// Step 4.
	if err := ValidateSignature(sig); err != nil {
		return fail("dkim: verify: %v", err)
	}

	// Step 5.
	cRaw, _ := sig.Get("c")
	headerCan, bodyCan, err := ParseCanonicalization(cRaw)
	if err != nil {
		return fail("dkim: verify: %v", err)
	}

	// Step 6.
	canHeaders, err := CanonicalizeHeaders(headerCan, msg.Headers)
	if err != nil {
		return fail("dkim: verify: %v", err)
	}
	canBody, err := CanonicalizeBody(bodyCan, msg.Body)
	if err != nil {
		return fail("dkim: verify: %v", err)
	}

	// Step 7.
	algo, _ := sig.Get("a")
	var hash crypto.Hash
	switch algo {
	case "rsa-sha1":
		hash = crypto.SHA1
	case "rsa-sha256":
		hash = crypto.SHA256
	default:
		return fail("dkim: verify: unsupported algorithm a=%s", algo)
	}

	// Step 8.
	if lStr, ok := sig.Get("l"); ok {
		l, err := strconv.ParseInt(strings.TrimSpace(lStr), 10, 64)
		if err != nil {
			return fail("dkim: verify: malformed l=%s", lStr)
		}
		if l < int64(len(canBody)) {
			canBody = canBody[:l]
		}
	}

	// Step 9.
	bh, _ := sig.Get("bh")
	wantHash, err := decodeBase64Field(bh)
	if err != nil {
		return fail("dkim: verify: malformed bh=%s", bh)
	}
	gotHash := hashBody(hash, canBody)
	if !bytesEqual(gotHash, wantHash) {
		return fail("dkim: verify: body hash mismatch")
	}

	// Step 10.
	d, _ := sig.Get("d")
	s, _ := sig.Get("s")
	name := s + "._domainkey." + d + "."
	txt, err := resolver(name)
	if err != nil {
		return fail("dkim: verify: DNS lookup for %s failed: %v", name, err)
	}
	if txt == "" {
		return fail("dkim: verify: no key record for %s", name)
	}

	// Step 11.
	keyTags, err := ParseTagList(txt)
	if err != nil {
		return fail("dkim: verify: malformed key record: %v", err)
	}
	p, ok := keyTags.Get("p")
	if !ok {
		return fail("dkim: verify: key record missing p=")
	}
	pBytes, err := decodeBase64Field(p)
	if err != nil {
		return fail("dkim: verify: malformed p= in key record")
	}
	pub, err := keys.ParsePublicKey(pBytes)
	if err != nil {
		return fail("dkim: verify: %v", err)
	}

	// Step 12.
	hRaw, _ := sig.Get("h")
	includeHeaders := parseColonList(hRaw)

	bRaw, _ := sig.Get("b")
	sigBytes, err := decodeBase64Field(bRaw)
	if err != nil {
		return fail("dkim: verify: malformed b=%s", bRaw)
	}

	hasher := hash.New()
	if err := composeHeaderHash(hasher, headerCan, canHeaders, includeHeaders, sigHeader.Name, sigHeader.Value, bRaw); err != nil {
		return fail("dkim: verify: %v", err)
	}
	digest := hasher.Sum(nil)

	// Step 13.
	if err := keys.Verify(hash, digest, sigBytes, pub); err != nil {
		if err == ErrDigestTooLarge {
			return fail("dkim: verify: digest too large for modulus")
		}
		return fail("dkim: verify: signature did not verify: %v", err)
	}

	return true
}

func hashBody(h crypto.Hash, body string) []byte {
	switch h {
	case crypto.SHA1:
		sum := sha1.Sum([]byte(body))
		return sum[:]
	default:
		sum := sha256.Sum256([]byte(body))
		return sum[:]
	}
}

func decodeBase64Field(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(stripWhitespace(s))
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func parseColonList(s string) []string {
	parts := strings.Split(s, ":")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
