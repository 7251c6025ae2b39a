package preview

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/source"
)

type composeRequest struct {
	Backend     string              `json:"backend,omitempty"`
	Data        map[string]any      `json:"data,omitempty"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
}

// attachmentPayload carries inline content only. Paths are never accepted over HTTP.
type attachmentPayload struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Content []byte `json:"content"`
}

// MessageResponse is the JSON form of a composed message.
type MessageResponse struct {
	Headers     map[string]string `json:"headers,omitempty"`
	From        string            `json:"from,omitempty"`
	Subject     string            `json:"subject"`
	ContentType string            `json:"content_type"`
	Text        string            `json:"text"`
	HTML        string            `json:"html,omitempty"`
	To          []string          `json:"to"`
	CC          []string          `json:"cc,omitempty"`
	BCC         []string          `json:"bcc,omitempty"`
	Attachments []AttachmentInfo  `json:"attachments,omitempty"`
}

// AttachmentInfo describes an attachment without its content.
type AttachmentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p := mailer.Params{Template: templateID(r), Backend: req.Backend, FileReader: s.readFile}
	if req.Data != nil {
		p.Data = req.Data
	}
	for _, a := range req.Attachments {
		p.Attachments = append(p.Attachments, mailer.AttachBytes(a.Content, a.Name, a.Type))
	}

	msg, err := s.composer.Compose(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewMessageResponse(msg))
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	msg, err := s.composer.Compose(r.Context(), s.queryParams(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !msg.HasHTML() {
		writeJSON(w, http.StatusNotAcceptable, errorResponse{Error: "template has no HTML body"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src * data:; style-src 'unsafe-inline'")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write([]byte(s.policy.Sanitize(msg.HTML)))
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	msg, err := s.composer.Compose(r.Context(), s.queryParams(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(msg.Text))
}

func templateID(r *http.Request) string {
	id := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

// queryParams turns query parameters into a rendering context.
func (s *Server) queryParams(r *http.Request) mailer.Params {
	query := r.URL.Query()
	p := mailer.Params{Template: templateID(r), Backend: query.Get(backendParam), FileReader: s.readFile}

	data := make(map[string]any, len(query))
	for key, values := range query {
		switch {
		case key == backendParam:
		case len(values) == 1:
			data[key] = values[0]
		default:
			data[key] = values
		}
	}
	p.Data = data
	return p
}

// NewMessageResponse describes msg for JSON output. Attachment content is omitted.
func NewMessageResponse(msg *mailer.Message) MessageResponse {
	resp := MessageResponse{
		Headers:     msg.Headers,
		From:        msg.From,
		Subject:     msg.Subject,
		ContentType: string(msg.ContentType),
		Text:        msg.Text,
		HTML:        msg.HTML,
		To:          msg.To,
		CC:          msg.CC,
		BCC:         msg.BCC,
	}
	for _, a := range msg.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentInfo{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        len(a.Content),
		})
	}
	return resp
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "preview failed",
			slog.String("template", templateID(r)),
			slog.String("error", err.Error()),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mailer.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, source.ErrUnknownBackend),
		errors.Is(err, source.ErrInvalidName),
		errors.Is(err, mailer.ErrInvalidAttachment):
		return http.StatusBadRequest
	case errors.Is(err, mailer.ErrInvalidFrontmatter),
		errors.Is(err, mailer.ErrUnknownKey),
		errors.Is(err, mailer.ErrMissingKey),
		errors.Is(err, mailer.ErrInvalidContentType),
		errors.Is(err, mailer.ErrNoBody),
		errors.Is(err, mailer.ErrNoRecipients),
		errors.Is(err, mailer.ErrInvalidAddress),
		errors.Is(err, mailer.ErrRenderFailed),
		errors.Is(err, mailer.ErrAttachmentRead):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
