package mailer

import "strings"

// separator is the line that divides front matter from body.
const separator = "---"

// Document is a parsed template: validated front matter plus the unrendered body.
type Document struct {
	FrontMatter *FrontMatter
	Body        string
	HasBody     bool
}

// ParseDocument splits source on the first line consisting solely of "---"
// and validates the front matter above it.
// Without a separator the whole source is front matter and the document has no body.
func ParseDocument(source string) (*Document, error) {
	head, body, ok := splitDocument(source)

	fm, err := ParseFrontMatter(head)
	if err != nil {
		return nil, err
	}

	return &Document{
		FrontMatter: fm,
		Body:        body,
		HasBody:     ok,
	}, nil
}

// splitDocument cuts source at the first separator line.
// Later separator lines belong to the body.
func splitDocument(source string) (head, body string, ok bool) {
	offset := 0
	for offset <= len(source) {
		end := strings.IndexByte(source[offset:], '\n')
		var line string
		next := len(source) + 1
		if end == -1 {
			line = source[offset:]
		} else {
			line = source[offset : offset+end]
			next = offset + end + 1
		}

		if strings.TrimSuffix(line, "\r") == separator {
			head = source[:offset]
			if next <= len(source) {
				body = source[next:]
			}
			return head, body, true
		}

		offset = next
	}

	return source, "", false
}

// RequireBody returns the body or ErrNoBody when the document has none.
func (d *Document) RequireBody() (string, error) {
	if !d.HasBody {
		return "", ErrNoBody
	}
	return d.Body, nil
}
