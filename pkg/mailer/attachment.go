package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AttachmentSpec describes an attachment before it is loaded.
//
// A spec carries exactly one source: Path (a file read at compose time),
// Content (copied at compose time, so the spec can be reused) or Data
// (drained once at compose time). Name is required unless the spec was built
// with Attach, the bare path shorthand whose name is the file's base name.
// Type overrides MIME type inference.
type AttachmentSpec struct {
	Data    io.Reader
	Path    string
	Name    string
	Type    string
	Content []byte
	inline  bool
	bare    bool
}

// Attach is the shorthand for attaching the file at path under its own name.
func Attach(path string) AttachmentSpec {
	return AttachmentSpec{Path: path, bare: true}
}

// AttachFile attaches the file at path as name.
// An empty mimeType is inferred.
func AttachFile(path, name, mimeType string) AttachmentSpec {
	return AttachmentSpec{Path: path, Name: name, Type: mimeType}
}

// AttachReader attaches the content of r as name.
// The reader is consumed when the message is composed and never closed.
func AttachReader(r io.Reader, name, mimeType string) AttachmentSpec {
	return AttachmentSpec{Data: r, Name: name, Type: mimeType}
}

// AttachBytes attaches b as name. An empty b attaches an empty file.
func AttachBytes(b []byte, name, mimeType string) AttachmentSpec {
	return AttachmentSpec{Content: b, Name: name, Type: mimeType, inline: true}
}

func (s AttachmentSpec) hasContent() bool { return s.inline || s.Content != nil }

// IsBare reports whether the spec is the bare path shorthand.
func (s AttachmentSpec) IsBare() bool { return s.bare }

// Validate checks the shape of the spec without touching the file system.
func (s AttachmentSpec) Validate() error {
	if s.bare {
		if s.Data != nil || s.hasContent() {
			return errors.New("bare path attachment cannot carry data")
		}
		if strings.TrimSpace(s.Path) == "" {
			return errors.New("path is empty")
		}
		return nil
	}

	sources := 0
	for _, set := range []bool{s.Path != "", s.Data != nil, s.hasContent()} {
		if set {
			sources++
		}
	}

	switch {
	case sources > 1:
		return errors.New("path and data are mutually exclusive")
	case sources == 0:
		return errors.New("either a path or data is required")
	case s.Name == "":
		return errors.New("name is required")
	}
	return nil
}

// ValidateAttachments checks every spec and reports the first invalid one.
// No file is opened and no reader is consumed.
func ValidateAttachments(specs []AttachmentSpec) error {
	for i, spec := range specs {
		if err := spec.Validate(); err != nil {
			return &AttachmentError{Index: i, Reason: err.Error()}
		}
	}
	return nil
}

// FileReader reads the attachment file at path.
type FileReader func(path string) ([]byte, error)

// FSFileReader reads attachment paths inside fsys. A leading slash is
// dropped, so "/invoices/1.pdf" names "invoices/1.pdf". Paths with "..",
// "." or empty elements are rejected with fs.ErrInvalid.
func FSFileReader(fsys fs.FS) FileReader {
	return func(name string) ([]byte, error) {
		rel := strings.TrimLeft(filepath.ToSlash(name), "/")
		if !fs.ValidPath(rel) || rel == "." {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
		}
		return fs.ReadFile(fsys, rel)
	}
}

// loadAttachments reads every spec in order. Specs must already be validated.
func loadAttachments(specs []AttachmentSpec, readFile FileReader) ([]Attachment, error) {
	out := make([]Attachment, 0, len(specs))

	for _, spec := range specs {
		var (
			content []byte
			err     error
		)
		switch {
		case spec.hasContent():
			content = bytes.Clone(spec.Content)
			if content == nil {
				content = []byte{}
			}
		case spec.Data != nil:
			content, err = io.ReadAll(spec.Data)
		default:
			content, err = readFile(spec.Path)
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("%w: %s", ErrAttachmentRead, spec.displayName()), err)
		}

		name := spec.Name
		if name == "" {
			name = filepath.Base(spec.Path)
		}

		out = append(out, Attachment{
			Filename:    name,
			ContentType: detectContentType(spec.Type, name, content),
			Content:     content,
		})
	}

	return out, nil
}

func (s AttachmentSpec) displayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

// detectContentType prefers the explicit type, then the file extension,
// then the content itself.
func detectContentType(explicit, name string, content []byte) string {
	if explicit != "" {
		return explicit
	}
	if ext := filepath.Ext(name); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return mimetype.Detect(content).String()
}
