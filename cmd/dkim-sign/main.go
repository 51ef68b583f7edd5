package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dkimproto/dkim"
)

var (
	domain   string
	selector string
	keyFile  string
	headers  string
	useLen   bool
)

func init() {
	flag.StringVar(&domain, "d", "", "signing domain (required)")
	flag.StringVar(&selector, "s", "", "selector (required)")
	flag.StringVar(&keyFile, "f", "dkim.priv", "private key PEM filename")
	flag.StringVar(&headers, "h", "", "colon-separated list of headers to sign (default: all headers present)")
	flag.BoolVar(&useLen, "l", false, "emit l= body length")
	flag.Parse()
}

func main() {
	if domain == "" || selector == "" {
		log.Fatal("both -d and -s are required")
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		log.Fatalf("Failed to read private key file: %v", err)
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal(err)
	}

	var includeHeaders []string
	if headers != "" {
		for _, h := range strings.Split(headers, ":") {
			includeHeaders = append(includeHeaders, strings.ToLower(strings.TrimSpace(h)))
		}
	}

	sigHeader, err := dkim.Sign(raw, dkim.SignOptions{
		Domain:                 domain,
		Selector:               selector,
		PrivateKeyPEM:          keyPEM,
		HeaderCanonicalization: dkim.CanonicalizationRelaxed,
		BodyCanonicalization:   dkim.CanonicalizationRelaxed,
		IncludeHeaders:         includeHeaders,
		Length:                 useLen,
	})
	if err != nil {
		log.Fatalf("Failed to sign message: %v", err)
	}

	if _, err := os.Stdout.Write(sigHeader); err != nil {
		log.Fatal(err)
	}
	if _, err := os.Stdout.Write(raw); err != nil {
		log.Fatal(err)
	}
}
