package dkim

import "net"

// Resolver maps a DNS name (already in "<selector>._domainkey.<domain>."
// form) to the concatenation of all TXT character-strings in the first TXT
// record, or "" if none exist (spec §6.4).
type Resolver func(name string) (string, error)

// DefaultResolver implements Resolver on top of net.LookupTXT, which already
// joins the character-strings of each record; it returns the first record.
func DefaultResolver(name string) (string, error) {
	txts, err := net.LookupTXT(name)
	if err != nil {
		if dnsErr, ok := err.(*net.DNSError); ok && dnsErr.IsNotFound {
			return "", nil
		}
		return "", err
	}
	if len(txts) == 0 {
		return "", nil
	}
	return txts[0], nil
}
