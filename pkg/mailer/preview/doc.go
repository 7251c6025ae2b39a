// Package preview serves composed templates over HTTP for local review and
// integration checks.
//
// Routes:
//
//	POST /compose/{template}  body: {"backend": "...", "data": {...}}  -> composed message as JSON
//	GET  /html/{template}?k=v                                          -> HTML alternative
//	GET  /text/{template}?k=v                                          -> plain text body
//	GET  /healthz                                                      -> liveness
//	GET  /readyz                                                       -> readiness checks
//	GET  /metrics                                                      -> when WithMetrics is set
//
// Template identifiers may contain slashes. For the GET routes every query
// parameter becomes a string in the rendering context (repeated parameters
// become lists); "_backend" selects the source backend.
//
// HTML served by /html passes through a bluemonday policy. Files declared as
// template attachments are read only from the fs.FS given to WithAttachmentFS.
//
// Nothing is ever delivered: the server only needs a Composer.
package preview
