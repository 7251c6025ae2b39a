package mailer

import (
	"fmt"
	"net/mail"
	"strings"
)

// Recipient formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
// Names containing specials are quoted.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	if strings.ContainsAny(name, `()<>[]:;@\,."`) {
		name = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
	}
	return name + " <" + email + ">"
}

// ParseRecipients turns a rendered address list into normalized addresses.
// Empty entries are dropped, so "a@x.com, , b@x.com" yields two addresses.
// Entries that parse as RFC 5322 addresses are re-serialized as "Name <addr>"
// or "addr". Other entries are kept verbatim unless strict is set.
func ParseRecipients(list string, strict bool) ([]string, error) {
	entries := splitAddressList(list)
	out := make([]string, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		addr, err := mail.ParseAddress(entry)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, entry, err)
			}
			out = append(out, entry)
			continue
		}

		out = append(out, Recipient(addr.Name, addr.Address))
	}

	return out, nil
}

// splitAddressList splits on commas that are not inside a quoted string,
// a comment or an angle-addr.
func splitAddressList(list string) []string {
	var (
		parts   []string
		start   int
		quoted  bool
		escaped bool
		angle   int
		comment int
	)

	for i := 0; i < len(list); i++ {
		c := list[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && (quoted || comment > 0):
			escaped = true
		case c == '"' && comment == 0:
			quoted = !quoted
		case quoted:
		case c == '(':
			comment++
		case c == ')' && comment > 0:
			comment--
		case comment > 0:
		case c == '<':
			angle++
		case c == '>' && angle > 0:
			angle--
		case c == ',' && angle == 0:
			parts = append(parts, list[start:i])
			start = i + 1
		}
	}

	return append(parts, list[start:])
}
