package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSender is a mock implementation of Sender interface.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// templates resolves identifiers from an in-memory map.
func templates(t *testing.T, sources map[string]string) SourceResolver {
	t.Helper()
	return SourceFunc(func(_ context.Context, id, _ string) (string, error) {
		src, ok := sources[id]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
		}
		return src, nil
	})
}

// recordingReader serves files from memory and records every read.
type recordingReader struct {
	files map[string][]byte
	mu    sync.Mutex
	reads []string
}

func (r *recordingReader) ReadFile(path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, path)
	b, ok := r.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return b, nil
}

func (r *recordingReader) Reads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reads...)
}

const welcomeTemplate = `to: {{ .Email }}
subject: Welcome {{ .Name }}
content-type: markdown
---
Hello **{{ .Name }}**!
`

func TestMailer_Compose(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{"welcome.md": welcomeTemplate}), nil, Config{
		DefaultFrom: "Team <team@example.com>",
	})

	msg, err := m.Compose(context.Background(), Params{
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Alice", "Email": "alice@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alice@example.com"}, msg.To)
	require.Equal(t, "Welcome Alice", msg.Subject)
	require.Equal(t, "Team <team@example.com>", msg.From)
	require.Equal(t, ContentTypeMarkdown, msg.ContentType)
	require.True(t, msg.HasHTML())
	require.Contains(t, msg.HTML, "<strong>Alice</strong>")
	require.Equal(t, "Hello Alice!", msg.Text)
	require.Empty(t, msg.CC)
	require.Empty(t, msg.BCC)
	require.Empty(t, msg.Attachments)
}

func TestMailer_Compose_Idempotent(t *testing.T) {
	t.Parallel()

	files := &recordingReader{files: map[string][]byte{"/docs/terms.pdf": []byte("%PDF")}}
	m := New(templates(t, map[string]string{
		"welcome.md": "to: {{ .Email }}\nsubject: Hi\ncontent-type: html\nattachments:\n  - /docs/terms.pdf\n---\n<p>Hi {{ .Name }}</p>",
	}), nil, Config{}, WithFileReader(files.ReadFile))

	params := Params{
		Template:    "welcome.md",
		Data:        map[string]string{"Name": "Bob", "Email": "bob@example.com"},
		Attachments: []AttachmentSpec{AttachBytes([]byte("inline"), "note.txt", "text/plain")},
	}

	first, err := m.Compose(context.Background(), params)
	require.NoError(t, err)
	second, err := m.Compose(context.Background(), params)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.NotSame(t, first, second)
	require.Len(t, second.Attachments, 2)
	require.Equal(t, []byte("inline"), second.Attachments[1].Content)

	first.Attachments[1].Content[0] = 'X'
	require.Equal(t, []byte("inline"), second.Attachments[1].Content)
}

func TestMailer_Send_RetryKeepsInlineAttachments(t *testing.T) {
	t.Parallel()

	var sizes []int
	sender := SenderFunc(func(_ context.Context, msg *Message) error {
		sizes = append(sizes, len(msg.Attachments[0].Content))
		if len(sizes) == 1 {
			return errors.New("temporary failure")
		}
		return nil
	})
	m := New(templates(t, map[string]string{
		"note.md": "to: a@example.com\nsubject: Note\ncontent-type: plain\n---\nSee attached",
	}), sender, Config{})

	params := Params{
		Template:    "note.md",
		Attachments: []AttachmentSpec{AttachBytes([]byte("payload"), "note.txt", "")},
	}

	require.ErrorIs(t, m.Send(context.Background(), params), ErrSendFailed)
	require.NoError(t, m.Send(context.Background(), params))
	require.Equal(t, []int{7, 7}, sizes)
}

func TestMailer_Compose_Recipients(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{
		"list.md": `to: email1@example.com, , email2@example.com
cc: "{{ .Manager }}"
bcc:
  - audit@example.com
  - Archive <archive@example.com>
subject: Report
content-type: plain
---
Body`,
	}), nil, Config{})

	msg, err := m.Compose(context.Background(), Params{
		Template: "list.md",
		Data:     map[string]string{"Manager": "Boss <boss@example.com>"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"email1@example.com", "email2@example.com"}, msg.To)
	require.Equal(t, []string{"Boss <boss@example.com>"}, msg.CC)
	require.Equal(t, []string{"audit@example.com", "Archive <archive@example.com>"}, msg.BCC)
	require.Equal(t, []string{
		"email1@example.com", "email2@example.com",
		"Boss <boss@example.com>",
		"audit@example.com", "Archive <archive@example.com>",
	}, msg.Recipients())
}

func TestMailer_Compose_NoRecipients(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		to   string
		data any
	}{
		{name: "empty value", to: "''"},
		{name: "only separators", to: "' , , '"},
		{name: "renders empty", to: "'{{ .Email }}'", data: map[string]string{"Email": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := New(templates(t, map[string]string{
				"t.md": "to: " + tt.to + "\nsubject: s\ncontent-type: plain\n---\nbody",
			}), nil, Config{})

			_, err := m.Compose(context.Background(), Params{Template: "t.md", Data: tt.data})
			require.ErrorIs(t, err, ErrNoRecipients)
		})
	}
}

func TestMailer_Compose_StrictAddresses(t *testing.T) {
	t.Parallel()

	src := templates(t, map[string]string{"t.md": "to: not-an-address\nsubject: s\ncontent-type: plain\n---\nbody"})

	msg, err := New(src, nil, Config{}).Compose(context.Background(), Params{Template: "t.md"})
	require.NoError(t, err)
	require.Equal(t, []string{"not-an-address"}, msg.To)

	_, err = New(src, nil, Config{StrictAddresses: true}).Compose(context.Background(), Params{Template: "t.md"})
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestMailer_Compose_FromAndHeaders(t *testing.T) {
	t.Parallel()

	src := templates(t, map[string]string{
		"own-from.md": `to: a@example.com
from: "{{ .Sender }} <noreply@example.com>"
subject: s
content-type: plain
headers:
  X-Campaign: "{{ .Campaign }}"
  X-Static: fixed
---
body`,
		"default-from.md": "to: a@example.com\nsubject: s\ncontent-type: plain\n---\nbody",
	})
	m := New(src, nil, Config{DefaultFrom: "{{ .Sender }} <team@example.com>"})
	data := map[string]string{"Sender": "Acme", "Campaign": "spring"}

	msg, err := m.Compose(context.Background(), Params{Template: "own-from.md", Data: data})
	require.NoError(t, err)
	require.Equal(t, "Acme <noreply@example.com>", msg.From)
	require.Equal(t, map[string]string{"X-Campaign": "spring", "X-Static": "fixed"}, msg.Headers)

	msg, err = m.Compose(context.Background(), Params{Template: "default-from.md", Data: data})
	require.NoError(t, err)
	require.Equal(t, "Acme <team@example.com>", msg.From)
	require.Nil(t, msg.Headers)
}

func TestMailer_Compose_ContentTypes(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{
		"plain.md":    "to: a@example.com\nsubject: s\ncontent-type: plain\n---\nHello **{{ .Name }}**",
		"html.md":     "to: a@example.com\nsubject: s\ncontent-type: html\n---\n<p>Hello <b>{{ .Name }}</b></p>",
		"markdown.md": "to: a@example.com\nsubject: s\ncontent-type: markdown\n---\n# Hi {{ .Name }}",
	}), nil, Config{})
	data := map[string]string{"Name": "Eve"}

	msg, err := m.Compose(context.Background(), Params{Template: "plain.md", Data: data})
	require.NoError(t, err)
	require.Equal(t, "Hello **Eve**", msg.Text)
	require.Empty(t, msg.HTML)
	require.False(t, msg.HasHTML())

	msg, err = m.Compose(context.Background(), Params{Template: "html.md", Data: data})
	require.NoError(t, err)
	require.Equal(t, "<p>Hello <b>Eve</b></p>", msg.HTML)
	require.Equal(t, "Hello Eve", msg.Text)

	msg, err = m.Compose(context.Background(), Params{Template: "markdown.md", Data: data})
	require.NoError(t, err)
	require.Contains(t, msg.HTML, "<h1>Hi Eve</h1>")
	require.Equal(t, "Hi Eve", msg.Text)
}

func TestMailer_Compose_SanitizeHTML(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{
		"t.md": "to: a@example.com\nsubject: s\ncontent-type: html\n---\n<p>{{ .Name }}</p><script>x()</script>",
	}), nil, Config{SanitizeHTML: true})

	msg, err := m.Compose(context.Background(), Params{Template: "t.md", Data: map[string]string{"Name": "Eve"}})
	require.NoError(t, err)
	require.Equal(t, "<p>Eve</p>", msg.HTML)
}

func TestMailer_Compose_Errors(t *testing.T) {
	t.Parallel()

	src := templates(t, map[string]string{
		"unknown.md":   "to: a@example.com\nsubject: s\ncontent-type: plain\nreply-to: b@example.com\n---\nbody",
		"missing.md":   "to: a@example.com\n---\nbody",
		"badtype.md":   "to: a@example.com\nsubject: s\ncontent-type: rtf\n---\nbody",
		"nobody.md":    "to: a@example.com\nsubject: s\ncontent-type: plain\n",
		"badexpr.md":   "to: a@example.com\nsubject: '{{ .Name'\ncontent-type: plain\n---\nbody",
		"strict.md":    "to: a@example.com\nsubject: s\ncontent-type: plain\n---\n{{ .Missing }}",
		"badattach.md": "to: a@example.com\nsubject: s\ncontent-type: plain\nattachments:\n  - path: /docs/a.pdf\n---\nbody",
	})
	m := New(src, nil, Config{StrictTemplates: true})

	tests := []struct {
		template string
		wantErr  error
	}{
		{template: "absent.md", wantErr: ErrTemplateNotFound},
		{template: "unknown.md", wantErr: ErrUnknownKey},
		{template: "missing.md", wantErr: ErrMissingKey},
		{template: "badtype.md", wantErr: ErrInvalidContentType},
		{template: "nobody.md", wantErr: ErrNoBody},
		{template: "badexpr.md", wantErr: ErrRenderFailed},
		{template: "strict.md", wantErr: ErrRenderFailed},
		{template: "badattach.md", wantErr: ErrInvalidAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			t.Parallel()

			msg, err := m.Compose(context.Background(), Params{Template: tt.template, Data: map[string]string{}})
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, msg)
		})
	}
}

func TestMailer_Compose_MissingKeysReported(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{"t.md": "cc: a@example.com\n---\nbody"}), nil, Config{})

	_, err := m.Compose(context.Background(), Params{Template: "t.md"})

	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	require.Equal(t, []string{"to", "subject", "content-type"}, keyErr.Keys)
}

func TestMailer_Compose_Attachments(t *testing.T) {
	t.Parallel()

	files := &recordingReader{files: map[string][]byte{
		"/docs/terms.pdf":     []byte("%PDF terms"),
		"/invoices/42.pdf":    []byte("%PDF invoice"),
		"/uploads/report.csv": []byte("a,b"),
	}}
	m := New(templates(t, map[string]string{
		"invoice.md": `to: a@example.com
subject: Invoice {{ .ID }}
content-type: plain
attachments:
  - /docs/terms.pdf
  - path: /invoices/{{ .ID }}.pdf
    name: invoice-{{ .ID }}.pdf
---
See attached.`,
	}), nil, Config{}, WithFileReader(files.ReadFile))

	msg, err := m.Compose(context.Background(), Params{
		Template: "invoice.md",
		Data:     map[string]string{"ID": "42"},
		Attachments: []AttachmentSpec{
			AttachFile("/uploads/report.csv", "report.csv", "text/csv"),
			AttachBytes([]byte("inline"), "note.txt", "text/plain"),
		},
	})
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 4)

	require.Equal(t, "terms.pdf", msg.Attachments[0].Filename)
	require.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	require.Equal(t, "invoice-42.pdf", msg.Attachments[1].Filename)
	require.Equal(t, []byte("%PDF invoice"), msg.Attachments[1].Content)
	require.Equal(t, "report.csv", msg.Attachments[2].Filename)
	require.Equal(t, "text/csv", msg.Attachments[2].ContentType)
	require.Equal(t, "note.txt", msg.Attachments[3].Filename)
	require.Equal(t, []byte("inline"), msg.Attachments[3].Content)

	require.Equal(t, []string{"/docs/terms.pdf", "/invoices/42.pdf", "/uploads/report.csv"}, files.Reads())
}

func TestMailer_Compose_InvalidAttachmentsDoNoIO(t *testing.T) {
	t.Parallel()

	files := &recordingReader{files: map[string][]byte{"/docs/terms.pdf": []byte("%PDF")}}
	m := New(templates(t, map[string]string{
		"t.md": "to: a@example.com\nsubject: s\ncontent-type: plain\nattachments:\n  - /docs/terms.pdf\n---\nbody",
	}), nil, Config{}, WithFileReader(files.ReadFile))

	_, err := m.Compose(context.Background(), Params{
		Template: "t.md",
		Attachments: []AttachmentSpec{
			AttachFile("/docs/terms.pdf", "terms.pdf", ""),
			AttachFile("/docs/other.pdf", "", ""),
		},
	})
	require.ErrorIs(t, err, ErrInvalidAttachment)

	var attErr *AttachmentError
	require.True(t, errors.As(err, &attErr))
	require.Equal(t, 1, attErr.Index)
	require.Empty(t, files.Reads())
}

func TestMailer_Compose_SchemaCheckedBeforeAttachments(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{
		"t.md": "to: a@example.com\nsubject: s\nbogus: x\n---\nbody",
	}), nil, Config{})

	_, err := m.Compose(context.Background(), Params{
		Template:    "t.md",
		Attachments: []AttachmentSpec{{}},
	})
	require.ErrorIs(t, err, ErrUnknownKey)
	require.NotErrorIs(t, err, ErrInvalidAttachment)
}

func TestMailer_Compose_AttachmentReadFailure(t *testing.T) {
	t.Parallel()

	files := &recordingReader{files: map[string][]byte{}}
	m := New(templates(t, map[string]string{
		"t.md": "to: a@example.com\nsubject: s\ncontent-type: plain\n---\nbody",
	}), nil, Config{}, WithFileReader(files.ReadFile))

	msg, err := m.Compose(context.Background(), Params{
		Template:    "t.md",
		Attachments: []AttachmentSpec{Attach("/missing.pdf")},
	})
	require.ErrorIs(t, err, ErrAttachmentRead)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Nil(t, msg)
}

func TestMailer_Compose_PassesBackend(t *testing.T) {
	t.Parallel()

	var gotBackend string
	src := SourceFunc(func(_ context.Context, _, backend string) (string, error) {
		gotBackend = backend
		return "to: a@example.com\nsubject: s\ncontent-type: plain\n---\nbody", nil
	})

	_, err := New(src, nil, Config{}).Compose(context.Background(), Params{Template: "t.md", Backend: "db"})
	require.NoError(t, err)
	require.Equal(t, "db", gotBackend)
}

type recordingObserver struct {
	mu        sync.Mutex
	templates []string
	errs      []error
}

func (o *recordingObserver) ObserveCompose(template string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.templates = append(o.templates, template)
	o.errs = append(o.errs, err)
}

func TestMailer_Compose_Observer(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	m := New(templates(t, map[string]string{"welcome.md": welcomeTemplate}), nil, Config{}, WithObserver(obs))

	_, err := m.Compose(context.Background(), Params{Template: "welcome.md", Data: map[string]string{"Email": "a@example.com"}})
	require.NoError(t, err)
	_, err = m.Compose(context.Background(), Params{Template: "absent.md"})
	require.Error(t, err)

	require.Equal(t, []string{"welcome.md", "absent.md"}, obs.templates)
	require.NoError(t, obs.errs[0])
	require.ErrorIs(t, obs.errs[1], ErrTemplateNotFound)
}

func TestMailer_Compose_Concurrent(t *testing.T) {
	t.Parallel()

	m := New(templates(t, map[string]string{"welcome.md": welcomeTemplate}), nil, Config{})

	var wg sync.WaitGroup
	results := make([]*Message, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Compose(context.Background(), Params{
				Template: "welcome.md",
				Data:     map[string]string{"Name": fmt.Sprintf("user%d", i), "Email": fmt.Sprintf("user%d@example.com", i)},
			})
		}(i)
	}
	wg.Wait()

	for i, msg := range results {
		require.NoError(t, errs[i])
		require.Equal(t, []string{fmt.Sprintf("user%d@example.com", i)}, msg.To)
		require.Equal(t, fmt.Sprintf("Welcome user%d", i), msg.Subject)
	}
}

func TestMailer_Send(t *testing.T) {
	t.Parallel()

	mockSender := &MockSender{}
	m := New(templates(t, map[string]string{"welcome.md": welcomeTemplate}), mockSender, Config{DefaultFrom: "team@example.com"})

	mockSender.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		return msg.To[0] == "alice@example.com" &&
			msg.Subject == "Welcome Alice" &&
			msg.From == "team@example.com" &&
			len(msg.HTML) > 0 &&
			len(msg.Text) > 0
	})).Return(nil)

	err := m.Send(context.Background(), Params{
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Alice", "Email": "alice@example.com"},
	})
	require.NoError(t, err)
	mockSender.AssertExpectations(t)
}

func TestMailer_Send_ComposeFailure(t *testing.T) {
	t.Parallel()

	mockSender := &MockSender{}
	m := New(templates(t, map[string]string{}), mockSender, Config{})

	err := m.Send(context.Background(), Params{Template: "absent.md"})
	require.ErrorIs(t, err, ErrTemplateNotFound)
	mockSender.AssertNotCalled(t, "Send")
}

func TestMailer_Send_SenderFailure(t *testing.T) {
	t.Parallel()

	mockSender := &MockSender{}
	m := New(templates(t, map[string]string{"welcome.md": welcomeTemplate}), mockSender, Config{})

	senderErr := errors.New("smtp connection failed")
	mockSender.On("Send", mock.Anything, mock.Anything).Return(senderErr)

	err := m.Send(context.Background(), Params{
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Alice", "Email": "alice@example.com"},
	})
	require.ErrorIs(t, err, ErrSendFailed)
	require.ErrorIs(t, err, senderErr)
	mockSender.AssertExpectations(t)
}

func TestMailer_SendMessage(t *testing.T) {
	t.Parallel()

	t.Run("no recipients", func(t *testing.T) {
		t.Parallel()

		mockSender := &MockSender{}
		m := New(templates(t, nil), mockSender, Config{})

		err := m.SendMessage(context.Background(), &Message{Subject: "s"})
		require.ErrorIs(t, err, ErrNoRecipients)
		mockSender.AssertNotCalled(t, "Send")
	})

	t.Run("no sender", func(t *testing.T) {
		t.Parallel()

		m := New(templates(t, nil), nil, Config{})

		err := m.SendMessage(context.Background(), &Message{To: []string{"a@example.com"}})
		require.ErrorIs(t, err, ErrSendFailed)
	})

	t.Run("delivers", func(t *testing.T) {
		t.Parallel()

		msg := &Message{To: []string{"a@example.com"}, Subject: "s", Text: "body"}
		mockSender := &MockSender{}
		mockSender.On("Send", mock.Anything, msg).Return(nil)
		m := New(templates(t, nil), mockSender, Config{})

		require.NoError(t, m.SendMessage(context.Background(), msg))
		mockSender.AssertExpectations(t)
	})
}

func TestMailer_Compose_ParamsFileReader(t *testing.T) {
	t.Parallel()

	defaultReader := &recordingReader{files: map[string][]byte{"/invoices/42.pdf": []byte("default")}}
	callReader := &recordingReader{files: map[string][]byte{"/invoices/42.pdf": []byte("scoped")}}
	m := New(templates(t, map[string]string{
		"invoice.md": "to: a@example.com\nsubject: Invoice\ncontent-type: plain\nattachments:\n  - /invoices/{{ .ID }}.pdf\n---\nAttached",
	}), nil, Config{}, WithFileReader(defaultReader.ReadFile))

	msg, err := m.Compose(context.Background(), Params{
		Template:   "invoice.md",
		Data:       map[string]string{"ID": "42"},
		FileReader: callReader.ReadFile,
	})
	require.NoError(t, err)
	require.Equal(t, []byte("scoped"), msg.Attachments[0].Content)
	require.Empty(t, defaultReader.Reads())
}
