package dkim

// Logger is the ambient diagnostic sink threaded through Sign and Verify.
// Its shape mirrors log.Printf, so callers can pass that directly:
//
//	dkim.Verify(msg, dkim.VerifyOptions{Logger: log.Printf})
//
// A nil Logger, the default in SignOptions and VerifyOptions, drops every
// message.
type Logger func(format string, args ...interface{})

// DiscardLogger is a Logger that drops every message, like a nil Logger.
func DiscardLogger(format string, args ...interface{}) {}

func (l Logger) logf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l(format, args...)
}
