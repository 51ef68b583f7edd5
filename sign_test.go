package dkim

import (
	"strings"
	"testing"
	"time"
)

func fixedNow(t *testing.T) func() {
	orig := now
	now = func() time.Time { return time.Unix(1700000000, 0) }
	return func() { now = orig }
}

func signTestMessage(t *testing.T, opts SignOptions) (raw []byte, sigHeader string) {
	t.Helper()
	raw = []byte("From: alice@example.com\r\nTo: bob@example.com\r\nSubject: hi\r\n\r\nhello there\r\n")
	sig, err := Sign(raw, opts)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return raw, string(sig)
}

func baseSignOptions() SignOptions {
	return SignOptions{
		Selector:               "sel1",
		Domain:                 "example.com",
		PrivateKeyPEM:          []byte(testPrivateKeyPEM),
		HeaderCanonicalization: CanonicalizationRelaxed,
		BodyCanonicalization:   CanonicalizationRelaxed,
		IncludeHeaders:         []string{"from", "to", "subject"},
	}
}

func TestSignProducesWellFormedHeader(t *testing.T) {
	defer fixedNow(t)()
	_, sigHeader := signTestMessage(t, baseSignOptions())

	if !strings.HasPrefix(sigHeader, "DKIM-Signature: v=1;") {
		t.Fatalf("unexpected header prefix: %q", sigHeader)
	}
	if !strings.HasSuffix(sigHeader, crlf) {
		t.Fatalf("header missing trailing crlf: %q", sigHeader)
	}
	if !strings.Contains(sigHeader, "d=example.com") {
		t.Errorf("missing d=example.com: %q", sigHeader)
	}
	if !strings.Contains(sigHeader, "s=sel1") {
		t.Errorf("missing s=sel1: %q", sigHeader)
	}
	if !strings.Contains(sigHeader, "i=@example.com") {
		t.Errorf("missing default identity: %q", sigHeader)
	}
}

func TestSignDefaultsIncludeHeadersToAllPresentHeaders(t *testing.T) {
	defer fixedNow(t)()
	opts := baseSignOptions()
	opts.IncludeHeaders = nil
	_, sigHeader := signTestMessage(t, opts)
	for _, want := range []string{"h=from", "to", "subject"} {
		if !strings.Contains(strings.ToLower(sigHeader), strings.ToLower(want)) {
			t.Errorf("expected %q in %q", want, sigHeader)
		}
	}
}

func TestSignRejectsEmptyDomain(t *testing.T) {
	opts := baseSignOptions()
	opts.Domain = ""
	if _, err := Sign([]byte("From: a@b\r\n\r\n"), opts); err == nil {
		t.Fatal("expected error for missing domain")
	}
}

func TestSignRejectsEmptySelector(t *testing.T) {
	opts := baseSignOptions()
	opts.Selector = ""
	if _, err := Sign([]byte("From: a@b\r\n\r\n"), opts); err == nil {
		t.Fatal("expected error for missing selector")
	}
}

func TestSignRejectsIdentityNotUnderDomain(t *testing.T) {
	opts := baseSignOptions()
	opts.Identity = "user@other.example"
	if _, err := Sign([]byte("From: a@b\r\n\r\n"), opts); err == nil {
		t.Fatal("expected error for identity outside domain")
	}
}

func TestSignEmitsLengthWhenRequested(t *testing.T) {
	defer fixedNow(t)()
	opts := baseSignOptions()
	opts.Length = true
	_, sigHeader := signTestMessage(t, opts)
	if !strings.Contains(sigHeader, "l=") {
		t.Errorf("expected l= tag in %q", sigHeader)
	}
}

func TestSignFoldsLongHeader(t *testing.T) {
	defer fixedNow(t)()
	opts := baseSignOptions()
	opts.IncludeHeaders = []string{"from", "to", "subject", "from", "to", "subject"}
	_, sigHeader := signTestMessage(t, opts)
	// Sign appends the b= value after folding (step 11), so the width limit
	// applies to the folded tag list up to and including "b=".
	folded := strings.TrimSuffix(sigHeader, crlf)
	folded = folded[:strings.LastIndex(folded, "b=")+len("b=")]
	if !strings.Contains(folded, crlf+" ") {
		t.Fatalf("expected a folded header: %q", sigHeader)
	}
	for _, line := range strings.Split(folded, crlf) {
		if len(line) > foldWidth+len("DKIM-Signature: ") {
			t.Errorf("line too long: %q", line)
		}
	}
}
