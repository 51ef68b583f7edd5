package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/mail"
	"net/textproto"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/emersion/go-milter"

	"github.com/dkimproto/dkim"
	"github.com/dkimproto/dkim/authres"
)

var (
	signDomains    stringSliceFlag
	identity       string
	listenURI      string
	privateKeyPath string
	selector       string
	verbose        bool
)

var privateKeyPEM []byte

var signHeaderKeys = []string{
	"From",
	"Reply-To",
	"Subject",
	"Date",
	"To",
	"Cc",
	"Resent-Date",
	"Resent-From",
	"Resent-To",
	"Resent-Cc",
	"In-Reply-To",
	"References",
	"List-Id",
	"List-Help",
	"List-Unsubscribe",
	"List-Subscribe",
	"List-Post",
	"List-Owner",
	"List-Archive",
}

func init() {
	flag.Var(&signDomains, "d", "Domain(s) whose mail should be signed")
	flag.StringVar(&identity, "i", "", "Server identity (defaults to hostname)")
	flag.StringVar(&listenURI, "l", "unix:///tmp/dkim-milter.sock", "Listen URI")
	flag.StringVar(&privateKeyPath, "k", "", "Private key (PEM-formatted)")
	flag.StringVar(&selector, "s", "", "Selector")
	flag.BoolVar(&verbose, "v", false, "Enable verbose logging")
}

type stringSliceFlag []string

func (f *stringSliceFlag) String() string {
	return strings.Join(*f, ", ")
}

func (f *stringSliceFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// session buffers a single message's headers and body, then runs the whole
// thing through Sign/Verify once Body is called — the core package works on
// complete messages rather than a streaming writer.
type session struct {
	authResDelete []int
	raw           bytes.Buffer

	signDomain     string
	signHeaderKeys []string
}

func (s *session) Connect(host string, family string, port uint16, addr net.IP, m *milter.Modifier) (milter.Response, error) {
	return nil, nil
}

func (s *session) Helo(name string, m *milter.Modifier) (milter.Response, error) {
	return nil, nil
}

func (s *session) MailFrom(from string, m *milter.Modifier) (milter.Response, error) {
	return nil, nil
}

func (s *session) RcptTo(rcptTo string, m *milter.Modifier) (milter.Response, error) {
	return nil, nil
}

func parseAddressDomain(s string) (string, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", err
	}

	parts := strings.SplitN(addr.Address, "@", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("dkim-milter: malformed address: missing '@'")
	}

	return parts[1], nil
}

func (s *session) Header(name string, value string, m *milter.Modifier) (milter.Response, error) {
	if strings.EqualFold(name, "From") || strings.EqualFold(name, "Sender") {
		domain, err := parseAddressDomain(value)
		if err != nil {
			return nil, fmt.Errorf("dkim-milter: failed to parse header field '%v': %v", name, err)
		}

		for _, d := range signDomains {
			if strings.EqualFold(d, domain) {
				s.signDomain = d
				break
			}
		}
	}

	for _, k := range signHeaderKeys {
		if strings.EqualFold(name, k) {
			s.signHeaderKeys = append(s.signHeaderKeys, strings.ToLower(name))
		}
	}

	field := name + ": " + value + "\r\n"
	_, err := s.raw.WriteString(field)
	return milter.RespContinue, err
}

func getIdentity(authRes string) string {
	parts := strings.SplitN(authRes, ";", 2)
	return strings.TrimSpace(parts[0])
}

func (s *session) Headers(h textproto.MIMEHeader, m *milter.Modifier) (milter.Response, error) {
	if _, err := s.raw.WriteString("\r\n"); err != nil {
		return nil, err
	}

	fields := h["Authentication-Results"]
	for i, field := range fields {
		if strings.EqualFold(identity, getIdentity(field)) {
			s.authResDelete = append(s.authResDelete, i)
		}
	}

	return milter.RespContinue, nil
}

func (s *session) BodyChunk(chunk []byte, m *milter.Modifier) (milter.Response, error) {
	if _, err := s.raw.Write(chunk); err != nil {
		return nil, err
	}
	return milter.RespContinue, nil
}

func (s *session) Body(m *milter.Modifier) (milter.Response, error) {
	for _, index := range s.authResDelete {
		if err := m.ChangeHeader(index, "Authentication-Results", ""); err != nil {
			return nil, err
		}
	}

	raw := s.raw.Bytes()

	if s.signDomain != "" {
		sigHeader, err := dkim.Sign(raw, dkim.SignOptions{
			Domain:                 s.signDomain,
			Selector:               selector,
			PrivateKeyPEM:          privateKeyPEM,
			HeaderCanonicalization: dkim.CanonicalizationRelaxed,
			BodyCanonicalization:   dkim.CanonicalizationRelaxed,
			IncludeHeaders:         s.signHeaderKeys,
		})
		if err != nil {
			if verbose {
				log.Printf("DKIM signature failed: %v", err)
			}
			return nil, err
		}

		field := strings.TrimSuffix(string(sigHeader), "\r\n")
		parts := strings.SplitN(field, ": ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("dkim-milter: malformed DKIM-Signature header field")
		}
		if err := m.InsertHeader(0, parts[0], parts[1]); err != nil {
			return nil, err
		}
	}

	var results []authres.Result
	if result, present := verifyResult(raw); present {
		results = append(results, result)
	}

	v := authres.Format(identity, results)
	if err := m.InsertHeader(0, "Authentication-Results", v); err != nil {
		return nil, err
	}

	return milter.RespAccept, nil
}

// verifyResult runs Verify over raw and reports a single DKIMResult — the
// core package only ever checks the first DKIM-Signature header. present is
// false when the as-received message carried no DKIM-Signature header (e.g.
// outbound mail we're about to sign for the first time).
func verifyResult(raw []byte) (result *authres.DKIMResult, present bool) {
	msg, err := dkim.ParseMessage(raw)
	if err != nil {
		return nil, false
	}

	var domain, ident string
	found := false
	for _, h := range msg.Headers {
		if !strings.EqualFold(h.Name, "DKIM-Signature") {
			continue
		}
		found = true
		if sig, err := dkim.ParseSignature(h.Value); err == nil {
			domain, _ = sig.Get("d")
			ident, _ = sig.Get("i")
		}
		break
	}
	if !found {
		return nil, false
	}

	var reason string
	logger := dkim.Logger(func(format string, args ...interface{}) {
		reason = fmt.Sprintf(format, args...)
	})

	ok := dkim.Verify(raw, dkim.VerifyOptions{Logger: logger})
	if verbose {
		if ok {
			log.Printf("DKIM verification succeeded for %v", domain)
		} else {
			log.Printf("DKIM verification failed for %v: %v", domain, reason)
		}
	}

	value := authres.ResultFail
	if ok {
		value = authres.ResultPass
	}
	return &authres.DKIMResult{Value: value, Domain: domain, Identifier: ident}, true
}

func loadPrivateKey(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, err
	}

	return b, nil
}

func main() {
	flag.Parse()

	if identity == "" {
		var err error
		identity, err = os.Hostname()
		if err != nil {
			log.Fatal("Failed to read hostname: ", err)
		}
	}

	if (len(signDomains) > 0 || privateKeyPath != "" || selector != "") && !(len(signDomains) > 0 && privateKeyPath != "" && selector != "") {
		log.Fatal("Domain(s) (-d), selector (-s) and private key (-k) must all be specified together")
	}

	if privateKeyPath != "" {
		var err error
		privateKeyPEM, err = loadPrivateKey(privateKeyPath)
		if err != nil {
			log.Fatalf("Failed to load private key from '%v': %v", privateKeyPath, err)
		}
	}

	parts := strings.SplitN(listenURI, "://", 2)
	if len(parts) != 2 {
		log.Fatal("Invalid listen URI")
	}
	listenNetwork, listenAddr := parts[0], parts[1]

	s := milter.Server{
		NewMilter: func() milter.Milter {
			return &session{}
		},
		Actions:  milter.OptAddHeader | milter.OptChangeHeader,
		Protocol: milter.OptNoConnect | milter.OptNoHelo | milter.OptNoMailFrom | milter.OptNoRcptTo,
	}

	ln, err := net.Listen(listenNetwork, listenAddr)
	if err != nil {
		log.Fatal("Failed to setup listener: ", err)
	}

	// Closing the listener will unlink the unix socket, if any
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		if err := s.Close(); err != nil {
			log.Fatal("Failed to close server: ", err)
		}
	}()

	log.Println("Milter listening at", listenURI)
	if err := s.Serve(ln); err != nil && err != milter.ErrServerClosed {
		log.Fatal("Failed to serve: ", err)
	}
}
