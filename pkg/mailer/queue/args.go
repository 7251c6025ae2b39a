package queue

import (
	"fmt"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Kind is the river job kind used for deferred sends.
const Kind = "mailer_send"

// Attachment is the serialisable form of mailer.AttachmentSpec.
// Content takes precedence over Path. A named attachment without Path is
// inline content, possibly empty. A Path with neither Name nor Type is
// attached under its base name.
type Attachment struct {
	Path    string `json:"path,omitempty"`
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
	Content []byte `json:"content,omitempty"`
}

// SendArgs are the arguments of a mailer_send job.
type SendArgs struct {
	Template    string         `json:"template"`
	Backend     string         `json:"backend,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	UniqueKey   string         `json:"unique_key,omitempty" river:"unique"`
}

// Kind implements river.JobArgs.
func (SendArgs) Kind() string { return Kind }

// Params converts the job arguments into mailer parameters.
func (a SendArgs) Params() mailer.Params {
	p := mailer.Params{
		Template: a.Template,
		Backend:  a.Backend,
	}
	if a.Data != nil {
		p.Data = a.Data
	}
	for _, at := range a.Attachments {
		p.Attachments = append(p.Attachments, at.spec())
	}
	return p
}

// Validate checks the arguments without loading anything.
func (a SendArgs) Validate() error {
	if a.Template == "" {
		return ErrTemplateRequired
	}
	if err := mailer.ValidateAttachments(a.Params().Attachments); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	return nil
}

func (at Attachment) spec() mailer.AttachmentSpec {
	switch {
	case at.Content != nil, at.Path == "" && at.Name != "":
		return mailer.AttachBytes(at.Content, at.Name, at.Type)
	case at.Name == "" && at.Type == "":
		return mailer.Attach(at.Path)
	default:
		return mailer.AttachFile(at.Path, at.Name, at.Type)
	}
}
