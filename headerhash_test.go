package dkim

import (
	"crypto/sha256"
	"testing"
)

func TestHeaderPickerMostRecentFirstWithCursor(t *testing.T) {
	headers := []Header{
		{Name: "A", Value: "A1"},
		{Name: "B", Value: "B1"},
		{Name: "A", Value: "A2"},
		{Name: "B", Value: "B2"},
		{Name: "A", Value: "A3"},
	}
	picker := newHeaderPicker(headers)

	var got []string
	for _, name := range []string{"a", "b", "a"} {
		hdr, ok := picker.pick(name)
		if !ok {
			t.Fatalf("pick(%q): no header found", name)
		}
		got = append(got, hdr.Value)
	}

	want := []string{"A3", "B2", "A2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pick #%d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeaderPickerTwoFromHeaders(t *testing.T) {
	headers := []Header{
		{Name: "From", Value: "first@example.com"},
		{Name: "From", Value: "second@example.com"},
	}
	picker := newHeaderPicker(headers)

	first, ok := picker.pick("from")
	if !ok || first.Value != "second@example.com" {
		t.Fatalf("first pick = %+v, %v", first, ok)
	}
	second, ok := picker.pick("from")
	if !ok || second.Value != "first@example.com" {
		t.Fatalf("second pick = %+v, %v", second, ok)
	}
	if _, ok := picker.pick("from"); ok {
		t.Error("third pick should fail, only two From headers exist")
	}
}

func TestHeaderPickerMissingHeaderIsSkipped(t *testing.T) {
	headers := []Header{{Name: "From", Value: "a@b"}}
	picker := newHeaderPicker(headers)
	if _, ok := picker.pick("to"); ok {
		t.Error("expected no match for absent header name")
	}
	hdr, ok := picker.pick("from")
	if !ok || hdr.Value != "a@b" {
		t.Errorf("from pick = %+v, %v", hdr, ok)
	}
}

func TestRemoveSignatureValueErasesFirstOccurrenceOnly(t *testing.T) {
	sigValue := " v=1; b=AAAA; bh=AAAA"
	got := removeSignatureValue(sigValue, "AAAA")
	want := " v=1; b=; bh=AAAA"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRemoveSignatureValueNoOpOnEmptyB(t *testing.T) {
	sigValue := " v=1; b=; bh=AAAA"
	if got := removeSignatureValue(sigValue, ""); got != sigValue {
		t.Errorf("got %q, want unchanged %q", got, sigValue)
	}
}

func TestComposeHeaderHashFollowsIncludeHeadersOrder(t *testing.T) {
	headers := []Header{
		{Name: "From", Value: " a@b\r\n"},
		{Name: "To", Value: " c@d\r\n"},
	}
	reordered := []Header{headers[1], headers[0]}

	digest := func(hs []Header) []byte {
		h := sha256.New()
		err := composeHeaderHash(h, CanonicalizationRelaxed, hs, []string{"from", "to"}, "DKIM-Signature", " v=1; b=", "")
		if err != nil {
			t.Fatalf("composeHeaderHash: %v", err)
		}
		return h.Sum(nil)
	}

	a := digest(headers)
	b := digest(reordered)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if !same {
		t.Error("expected same digest: includeHeaders order, not storage order, determines the hash input")
	}
}

func TestComposeHeaderHashTamperEvident(t *testing.T) {
	headers := []Header{{Name: "From", Value: " a@b\r\n"}}
	digest := func(v string) []byte {
		h := sha256.New()
		hdrs := []Header{{Name: "From", Value: v}}
		err := composeHeaderHash(h, CanonicalizationRelaxed, hdrs, []string{"from"}, "DKIM-Signature", " v=1; b=", "")
		if err != nil {
			t.Fatalf("composeHeaderHash: %v", err)
		}
		return h.Sum(nil)
	}
	a := digest(headers[0].Value)
	b := digest(" a@bx\r\n")
	equal := true
	for i := range a {
		if a[i] != b[i] {
			equal = false
			break
		}
	}
	if equal {
		t.Error("expected digests to differ after tampering with signed header value")
	}
}
