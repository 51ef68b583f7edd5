// Package dkim implements the core of DKIM (DomainKeys Identified Mail, RFC
// 6376) signing and verification: canonicalization, RFC 822 parsing, the
// tag=value signature grammar, and the sign/verify pipelines built on top of
// them.
//
// The package takes its cryptography (KeyAdapter) and DNS lookups
// (Resolver) as pluggable arguments rather than reaching for them directly,
// so callers can substitute deterministic fakes in tests and swap
// transports without touching the core algorithms.
package dkim

const crlf = "\r\n"

const headerFieldName = "DKIM-Signature"
