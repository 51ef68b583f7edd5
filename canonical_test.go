package dkim

import "testing"

func TestCanonicalizeBodySimple(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty body", "", "\r\n"},
		{"already minimal", "a b c\r\n", "a b c\r\n"},
		{"trailing blank lines collapse", "a b c\r\n\r\n\r\n\r\n", "a b c\r\n"},
		{"no trailing newline", "a b c", "a b c\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeBody(CanonicalizationSimple, tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizeBodyRelaxed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty body", "", "\r\n"},
		{"collapse interior and trailing ws, drop trailing blank lines", "a  b \t c  \r\n\r\n", "a b c\r\n"},
		{"tabs collapse to single space", "a\t\tb\r\n", "a b\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeBody(CanonicalizationRelaxed, tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizeHeadersSimpleIsIdentity(t *testing.T) {
	in := []Header{{Name: "From", Value: " Alice  <a@b>\r\n"}}
	got, err := CanonicalizeHeaders(CanonicalizationSimple, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != in[0] {
		t.Errorf("got %+v, want identity of %+v", got, in)
	}
}

func TestCanonicalizeHeadersRelaxed(t *testing.T) {
	in := []Header{{Name: "From", Value: " Alice  <a@b>\r\n"}}
	got, err := CanonicalizeHeaders(CanonicalizationRelaxed, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Header{Name: "from", Value: "Alice <a@b>\r\n"}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
}

func TestCanonicalizeHeadersRelaxedEmptyValue(t *testing.T) {
	in := []Header{{Name: "X-Empty", Value: "\r\n"}}
	got, err := CanonicalizeHeaders(CanonicalizationRelaxed, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Value != crlf {
		t.Errorf("got %q, want %q", got[0].Value, crlf)
	}
}

func TestCanonicalizeHeadersRelaxedFoldedValue(t *testing.T) {
	in := []Header{{Name: "Subject", Value: " hi\r\n there\r\n"}}
	got, err := CanonicalizeHeaders(CanonicalizationRelaxed, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "hi there\r\n"
	if got[0].Value != want {
		t.Errorf("got %q, want %q", got[0].Value, want)
	}
}

func TestCanonicalizationIdempotence(t *testing.T) {
	bodies := []string{"", "a b\r\n", "a  b \t c  \r\n\r\n\r\n", "no newline at all"}
	for _, scheme := range []Canonicalization{CanonicalizationSimple, CanonicalizationRelaxed} {
		for _, b := range bodies {
			once, err := CanonicalizeBody(scheme, b)
			if err != nil {
				t.Fatal(err)
			}
			twice, err := CanonicalizeBody(scheme, once)
			if err != nil {
				t.Fatal(err)
			}
			if once != twice {
				t.Errorf("%s: not idempotent: %q -> %q -> %q", scheme, b, once, twice)
			}
		}
	}

	headerSets := [][]Header{
		{{Name: "From", Value: " a@b\r\n"}},
		{{Name: "Subject", Value: "  hi  there  \r\n"}},
	}
	for _, scheme := range []Canonicalization{CanonicalizationSimple, CanonicalizationRelaxed} {
		for _, hs := range headerSets {
			once, err := CanonicalizeHeaders(scheme, hs)
			if err != nil {
				t.Fatal(err)
			}
			twice, err := CanonicalizeHeaders(scheme, once)
			if err != nil {
				t.Fatal(err)
			}
			for i := range once {
				if once[i] != twice[i] {
					t.Errorf("%s: not idempotent: %+v -> %+v -> %+v", scheme, hs[i], once[i], twice[i])
				}
			}
		}
	}
}
