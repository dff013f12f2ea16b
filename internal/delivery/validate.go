package delivery

import (
	"net/mail"
	"strings"
)

// Validate checks required fields and the recipient address. All problems
// are collected so the caller can report them together.
func (r *Request) Validate() error {
	var details []string

	switch {
	case r.ToEmail == "":
		details = append(details, `"to_email" is required`)
	case !validAddress(r.ToEmail):
		details = append(details, `"to_email" must be a valid email`)
	}
	if r.Subject == "" {
		details = append(details, `"subject" is required`)
	}
	if r.Body == "" {
		details = append(details, `"body" is required`)
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

// validAddress accepts a bare addr-spec with a dotted domain. Display-name
// forms such as "Bob <bob@example.com>" are rejected.
func validAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".")
}
