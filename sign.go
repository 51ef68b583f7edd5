package dkim

import (
	"crypto"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// now is overridden in tests for deterministic t= values.
var now = func() time.Time { return time.Now() }

// SignOptions configures Sign (spec §4.G). Selector, Domain and
// PrivateKeyPEM are mandatory; everything else has the default spec §4.G
// names.
type SignOptions struct {
	Selector      string
	Domain        string
	PrivateKeyPEM []byte

	// Identity defaults to "@"+Domain.
	Identity string

	// HeaderCanonicalization/BodyCanonicalization default to
	// CanonicalizationSimple.
	HeaderCanonicalization Canonicalization
	BodyCanonicalization   Canonicalization

	// IncludeHeaders defaults to the name of every header present in the
	// message, lowercased, in order, duplicates preserved.
	IncludeHeaders []string

	// Length, if true, emits l= with the canonicalized body's length.
	Length bool

	Logger Logger
	Keys   KeyAdapter
}

// Sign signs a message (spec §4.G) and returns the wire-form DKIM-Signature
// header, "DKIM-Signature: <folded value>\r\n".
func Sign(raw []byte, opts SignOptions) ([]byte, error) {
	if opts.Domain == "" {
		return nil, parameterErrorf("no domain specified")
	}
	if opts.Selector == "" {
		return nil, parameterErrorf("no selector specified")
	}

	keys := opts.Keys
	if keys == nil {
		keys = StdKeyAdapter{}
	}
	logger := opts.Logger

	headerCan := opts.HeaderCanonicalization
	if headerCan == "" {
		headerCan = CanonicalizationSimple
	}
	bodyCan := opts.BodyCanonicalization
	if bodyCan == "" {
		bodyCan = CanonicalizationSimple
	}
	if !headerCan.valid() || !bodyCan.valid() {
		return nil, parameterErrorf("unknown canonicalization %s/%s", headerCan, bodyCan)
	}

	// Step 1: parse the message.
	msg, err := ParseMessage(raw)
	if err != nil {
		logger.logf("dkim: sign: %v", err)
		return nil, err
	}

	// Step 2: parse the private key.
	priv, err := keys.ParsePrivateKey(opts.PrivateKeyPEM)
	if err != nil {
		logger.logf("dkim: sign: %v", err)
		return nil, &KeyFormatError{Reason: err.Error()}
	}

	// Step 3: identity/domain compatibility.
	identity := opts.Identity
	if identity == "" {
		identity = "@" + opts.Domain
	} else if !strings.HasSuffix(identity, opts.Domain) {
		return nil, parameterErrorf("identity %q does not end with domain %q", identity, opts.Domain)
	}

	// Step 4: canonicalize.
	canHeaders, err := CanonicalizeHeaders(headerCan, msg.Headers)
	if err != nil {
		return nil, err
	}
	canBody, err := CanonicalizeBody(bodyCan, msg.Body)
	if err != nil {
		return nil, err
	}

	// Step 5: body hash.
	bodyHash := sha256.Sum256([]byte(canBody))
	bh := base64.StdEncoding.EncodeToString(bodyHash[:])

	includeHeaders := opts.IncludeHeaders
	if includeHeaders == nil {
		for _, h := range msg.Headers {
			includeHeaders = append(includeHeaders, asciiLower(h.Name))
		}
	}

	// Step 6: build the tag list in the mandated order.
	tags := NewTagList()
	tags.Set("v", "1")
	tags.Set("a", "rsa-sha256")
	tags.Set("c", string(headerCan)+"/"+string(bodyCan))
	tags.Set("d", opts.Domain)
	tags.Set("i", identity)
	if opts.Length {
		tags.Set("l", strconv.Itoa(len(canBody)))
	}
	tags.Set("q", "dns/txt")
	tags.Set("s", opts.Selector)
	tags.Set("t", strconv.FormatInt(now().Unix(), 10))
	tags.Set("h", strings.Join(includeHeaders, " : "))
	tags.Set("bh", bh)
	tags.Set("b", "")

	// Step 7: serialize and fold.
	folded := foldHeaderValue(tags.String())

	// Steps 8-9: composeHeaderHash canonicalizes the DKIM-Signature field
	// pair (with b= erased — here it's already empty) and appends it to
	// the signed-header list before hashing (spec §4.E step 2).
	hasher := sha256.New()
	if err := composeHeaderHash(hasher, headerCan, canHeaders, includeHeaders, headerFieldName, " "+folded, ""); err != nil {
		return nil, err
	}
	digest := hasher.Sum(nil)

	// Step 10: sign.
	sigBytes, err := keys.Sign(crypto.SHA256, digest, priv)
	if err != nil {
		if err == ErrDigestTooLarge {
			return nil, parameterErrorf("digest too large for modulus")
		}
		return nil, err
	}

	// Step 11: append the signature to the already-folded tail (which ends
	// in "b="). Re-folding the whole tag list here would reflow whitespace
	// into the prefix that was just hashed, breaking the signature for
	// simple header canonicalization (the default) since that scheme is an
	// identity transform and can't absorb the inserted "\r\n ".
	final := folded + base64.StdEncoding.EncodeToString(sigBytes)

	return []byte(headerFieldName + ": " + final + crlf), nil
}
