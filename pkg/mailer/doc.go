// Package mailer composes email messages from template documents.
//
// A template document is a YAML front matter block and a body separated by
// the first line that consists solely of "---":
//
//	to: {{ .Email }}
//	subject: Welcome, {{ .Name }}
//	content-type: markdown
//	attachments:
//	  - /srv/docs/terms.pdf
//	  - path: "{{ .InvoicePath }}"
//	    name: invoice.pdf
//	---
//	Hello **{{ .Name }}**!
//
//	[!button|Get started](https://example.com/start)
//
// Front matter accepts only the keys to, cc, bcc, subject, from, headers,
// attachments and content-type. The keys to, subject and content-type are
// required and content-type must be plain, markdown or html. Schema problems
// are reported as *KeyError (unknown or missing keys) before anything is rendered.
//
// # Composition
//
// Mailer.Compose resolves the template through a SourceResolver, validates it,
// renders every field with a Renderer (text/template by default) and converts
// the body:
//
//   - plain bodies become the text part only
//   - markdown bodies are converted to HTML with goldmark, then to text
//   - html bodies are used as is and converted to text
//
// Recipient lists are split on top-level commas, empty entries are dropped and
// valid RFC 5322 addresses are normalized. A message without "to" recipients
// fails with ErrNoRecipients.
//
// Attachments come from the front matter and from Params.Attachments. All of
// them are validated before any file is read, so a malformed descriptor never
// causes I/O.
//
// # Usage
//
//	resolver := source.NewResolver(source.NewFS(templates.FS, source.WithDir("emails")))
//	m := mailer.New(resolver, smtp.New(smtpCfg), mailer.Config{
//		DefaultFrom: "Team <team@example.com>",
//	}, mailer.WithLogger(log))
//
//	err := m.Send(ctx, mailer.Params{
//		Template: "welcome.md",
//		Data:     map[string]any{"Name": "Ada", "Email": "ada@example.com"},
//		Attachments: []mailer.AttachmentSpec{
//			mailer.AttachBytes(report, "report.csv", "text/csv"),
//		},
//	})
//
// Providers live in sub-packages (smtp, ses, resend, postmark, sendgrid,
// filesender) and implement Sender. The queue sub-package delivers in the
// background with river, metrics exports Prometheus collectors and preview
// serves composed messages over HTTP.
package mailer
