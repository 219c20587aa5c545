// Package secret holds configuration values that must never be logged.
package secret

type String string

const redacted = "REDACTED"

// String implements fmt.Stringer so the value is redacted by %v and %s.
func (s String) String() string {
	return redacted
}

// GoString implements fmt.GoStringer so the value is redacted by %#v.
func (s String) GoString() string {
	return redacted
}

// Raw returns the sensitive value. Only call it where the value is handed to a client library.
func (s String) Raw() string {
	return string(s)
}

// MarshalJSON redacts the value in JSON, which is how spans are written out.
func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
