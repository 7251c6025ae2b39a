package mailer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound indicates no configured source has the template.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidFrontmatter indicates front matter that is not a flat YAML mapping.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")

	// ErrUnknownKey indicates front matter keys outside the allowed set.
	ErrUnknownKey = errors.New("unknown frontmatter keys")

	// ErrMissingKey indicates required front matter keys are absent.
	ErrMissingKey = errors.New("missing frontmatter keys")

	// ErrInvalidContentType indicates a content-type other than plain, markdown or html.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrNoBody indicates the template has no body section.
	ErrNoBody = errors.New("template has no body")

	// ErrNoRecipients indicates the rendered "to" list is empty.
	ErrNoRecipients = errors.New("email must have at least one recipient")

	// ErrInvalidAddress indicates a recipient that is not an RFC 5322 address.
	ErrInvalidAddress = errors.New("invalid email address")

	// ErrInvalidAttachment indicates an attachment descriptor with an invalid shape.
	ErrInvalidAttachment = errors.New("invalid attachment")

	// ErrAttachmentRead indicates an attachment payload could not be read.
	ErrAttachmentRead = errors.New("failed to read attachment")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("failed to render template")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("failed to send email")
)

// KeyError reports front matter keys that violate the schema.
// Err is either ErrUnknownKey or ErrMissingKey.
type KeyError struct {
	Err  error
	Keys []string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Keys, ", "))
}

func (e *KeyError) Unwrap() error { return e.Err }

// AttachmentError reports the first invalid entry of an attachment list.
type AttachmentError struct {
	Reason string
	Index  int
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("%v #%d: %s", ErrInvalidAttachment, e.Index, e.Reason)
}

func (e *AttachmentError) Unwrap() error { return ErrInvalidAttachment }
