package dkim

import (
	"bytes"
	"strings"
)

// Header is a single (name, value) pair as it appeared in the message.
// Value includes any continuation lines and always ends in "\r\n" (spec §3).
type Header struct {
	Name  string
	Value string
}

// Raw renders the header back to wire form: "name:value", value already
// carrying its trailing "\r\n".
func (h Header) Raw() string {
	return h.Name + ":" + h.Value
}

// Message is the result of parsing raw RFC 822 bytes: an ordered header
// list plus a body whose line endings have all been normalized to "\r\n".
type Message struct {
	Headers []Header
	Body    string
}

// ParseMessage splits raw message bytes into ordered headers and a body
// (spec §4.B). It tolerates both LF and CRLF line endings; the body is
// rejoined with "\r\n" regardless of its original line endings. Lines
// beginning with a literal "From " (a Unix mbox separator) are skipped.
func ParseMessage(raw []byte) (*Message, error) {
	lines := splitLines(raw)

	var headers []Header
	bodyStart := -1
	for i, line := range lines {
		if len(line) == 0 {
			bodyStart = i + 1
			break
		}

		switch {
		case line[0] == '\t' || line[0] == ' ':
			if len(headers) == 0 {
				return nil, messageFormatErrorf("continuation line before any header: %q", line)
			}
			headers[len(headers)-1].Value += string(line) + crlf
		case bytes.HasPrefix(line, []byte("From ")):
			// Unix mbox separator; not a header, ignored.
		default:
			name, value, ok := splitHeaderLine(line)
			if !ok {
				return nil, messageFormatErrorf("malformed header line: %q", line)
			}
			headers = append(headers, Header{Name: name, Value: value + crlf})
		}
	}

	m := &Message{Headers: headers}
	if bodyStart >= 0 && bodyStart <= len(lines) {
		bodyLines := byteLines(lines[bodyStart:])
		m.Body = strings.Join(bodyLines, crlf)
		if len(bodyLines) > 0 && endsWithNewline(raw) {
			m.Body += crlf
		}
	}
	return m, nil
}

func endsWithNewline(raw []byte) bool {
	return len(raw) > 0 && raw[len(raw)-1] == '\n'
}

// splitLines splits raw on bare LF or CRLF, returning each line without its
// terminator. A trailing unterminated line is included.
func splitLines(raw []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			end := i
			if end > start && raw[end-1] == '\r' {
				end--
			}
			lines = append(lines, raw[start:end])
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, raw[start:])
	}
	return lines
}

func byteLines(lines [][]byte) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}

// splitHeaderLine matches ^([\x21-\x7E]+?):(.*)$ non-greedily on the name:
// the name is the shortest run of printable-non-colon bytes before the
// first colon.
func splitHeaderLine(line []byte) (name, value string, ok bool) {
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	for _, b := range line[:idx] {
		if b < 0x21 || b > 0x7E {
			return "", "", false
		}
	}
	return string(line[:idx]), string(line[idx+1:]), true
}

// Raw reassembles a Message back into wire bytes (headers in order,
// followed by a blank line and the body). Useful for tests and for tools
// that want to re-emit a parsed-then-modified message.
func (m *Message) Raw() []byte {
	var b bytes.Buffer
	for _, h := range m.Headers {
		b.WriteString(h.Raw())
	}
	b.WriteString(crlf)
	b.WriteString(m.Body)
	return b.Bytes()
}
