// Package authres formats RFC 8601 Authentication-Results header fields for
// the DKIM result kind. SPF, DMARC, iprev and sender-id are out of scope; a
// GenericResult covers any method name that isn't "dkim".
package authres

import (
	"sort"
	"strings"
	"unicode"
)

// ResultValue is an authentication result value (RFC 8601 section 2.2.2).
type ResultValue string

const (
	ResultNone      ResultValue = "none"
	ResultPass      ResultValue = "pass"
	ResultFail      ResultValue = "fail"
	ResultPolicy    ResultValue = "policy"
	ResultNeutral   ResultValue = "neutral"
	ResultTempError ResultValue = "temperror"
	ResultPermError ResultValue = "permerror"
)

// Result is an authentication result that Format knows how to render.
type Result interface {
	format() (value ResultValue, params map[string]string)
	method() string
}

// DKIMResult is the "dkim" method result (RFC 8601 section 2.7.1).
type DKIMResult struct {
	Value      ResultValue
	Reason     string
	Domain     string
	Identifier string
}

func (r *DKIMResult) method() string { return "dkim" }

func (r *DKIMResult) format() (ResultValue, map[string]string) {
	return r.Value, map[string]string{
		"reason":   r.Reason,
		"header.d": r.Domain,
		"header.i": r.Identifier,
	}
}

// GenericResult formats a method this package doesn't otherwise model, so a
// caller relaying a foreign Authentication-Results field doesn't lose it.
type GenericResult struct {
	Method string
	Value  ResultValue
	Params map[string]string
}

func (r *GenericResult) method() string { return r.Method }

func (r *GenericResult) format() (ResultValue, map[string]string) {
	return r.Value, r.Params
}

// Format formats an Authentication-Results header value (without the
// "Authentication-Results:" field name).
func Format(identity string, results []Result) string {
	s := identity

	if len(results) == 0 {
		s += "; none"
		return s
	}

	for _, r := range results {
		value, params := r.format()
		s += "; " + r.method() + "=" + string(value)
		if p := formatParams(params); p != "" {
			s += " " + p
		}
	}

	return s
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "reason" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if params["reason"] != "" {
		keys = append([]string{"reason"}, keys...)
	}

	s := ""
	i := 0
	for _, k := range keys {
		if params[k] == "" {
			continue
		}

		if i > 0 {
			s += " "
		}

		var value string
		if k == "reason" {
			value = formatValue(params[k])
		} else {
			value = formatPvalue(params[k])
		}
		s += k + "=" + value
		i++
	}

	return s
}

var tspecials = map[rune]struct{}{
	'(': {}, ')': {}, '<': {}, '>': {}, '@': {},
	',': {}, ';': {}, ':': {}, '\\': {}, '"': {},
	'/': {}, '[': {}, ']': {}, '?': {}, '=': {},
}

func formatValue(s string) string {
	shouldQuote := false
	for _, ch := range s {
		if _, special := tspecials[ch]; ch <= ' ' || special {
			shouldQuote = true
		}
	}

	if shouldQuote {
		return `"` + strings.Replace(s, `"`, `\"`, -1) + `"`
	}
	return s
}

var addressOk = map[rune]struct{}{
	'#': {}, '$': {}, '%': {}, '&': {},
	'\'': {}, '*': {}, '+': {}, ',': {},
	'.': {}, '/': {}, '-': {}, '@': {},
	'[': {}, ']': {}, '\\': {}, '^': {},
	'_': {}, '`': {}, '{': {}, '|': {},
	'}': {}, '~': {},
}

func formatPvalue(s string) string {
	addressLike := true
	for _, ch := range s {
		if _, ok := addressOk[ch]; !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && !ok {
			addressLike = false
		}
	}

	if addressLike {
		return s
	}
	return formatValue(s)
}
