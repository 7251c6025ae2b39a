package mailer

// Message is a fully composed email ready to be handed to a Sender.
type Message struct {
	Headers     map[string]string // Rendered custom headers
	Subject     string
	From        string
	Text        string      // Plain text body, always set
	HTML        string      // HTML alternative, set for markdown and html templates
	ContentType ContentType // Content type declared by the template
	To          []string    // At least one recipient
	CC          []string
	BCC         []string
	Attachments []Attachment
}

// HasHTML reports whether the message carries an HTML alternative.
func (m *Message) HasHTML() bool {
	return m.ContentType == ContentTypeMarkdown || m.ContentType == ContentTypeHTML
}

// Recipients returns the envelope recipients: to, cc and bcc in that order.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC)+len(m.BCC))
	out = append(out, m.To...)
	out = append(out, m.CC...)
	return append(out, m.BCC...)
}

// Attachment is a loaded attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf")
	Content     []byte // Raw file content
}
