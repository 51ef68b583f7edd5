package authres

import "testing"

func TestFormatNoResults(t *testing.T) {
	got := Format("mail.example.org", nil)
	want := "mail.example.org; none"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDKIMPass(t *testing.T) {
	got := Format("mail.example.org", []Result{
		&DKIMResult{Value: ResultPass, Domain: "example.com"},
	})
	want := "mail.example.org; dkim=pass header.d=example.com"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDKIMFailWithReason(t *testing.T) {
	got := Format("mail.example.org", []Result{
		&DKIMResult{Value: ResultFail, Domain: "example.com", Reason: "bad signature"},
	})
	want := `mail.example.org; dkim=fail reason="bad signature" header.d=example.com`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDKIMWithIdentifier(t *testing.T) {
	got := Format("mail.example.org", []Result{
		&DKIMResult{Value: ResultPass, Domain: "example.com", Identifier: "@example.com"},
	})
	want := "mail.example.org; dkim=pass header.d=example.com header.i=@example.com"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatMultipleResults(t *testing.T) {
	got := Format("mail.example.org", []Result{
		&DKIMResult{Value: ResultPass, Domain: "example.com"},
		&DKIMResult{Value: ResultFail, Domain: "forwarder.example.net"},
	})
	want := "mail.example.org; dkim=pass header.d=example.com; dkim=fail header.d=forwarder.example.net"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatGenericResult(t *testing.T) {
	got := Format("mail.example.org", []Result{
		&GenericResult{Method: "spf", Value: ResultPass, Params: map[string]string{"smtp.mailfrom": "example.com"}},
	})
	want := "mail.example.org; spf=pass smtp.mailfrom=example.com"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
