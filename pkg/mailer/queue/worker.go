package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/dmitrymomot/missive/pkg/logger"
	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Mailer sends a templated email. *mailer.Mailer satisfies it.
type Mailer interface {
	Send(ctx context.Context, p mailer.Params) error
}

// permanentErrors fail the same way on every attempt.
// Transport failures and attachment read errors are retried.
var permanentErrors = []error{
	mailer.ErrTemplateNotFound,
	mailer.ErrInvalidFrontmatter,
	mailer.ErrUnknownKey,
	mailer.ErrMissingKey,
	mailer.ErrInvalidContentType,
	mailer.ErrNoBody,
	mailer.ErrNoRecipients,
	mailer.ErrInvalidAddress,
	mailer.ErrInvalidAttachment,
	mailer.ErrRenderFailed,
	ErrTemplateRequired,
}

// Permanent reports whether retrying a send that failed with err is pointless.
func Permanent(err error) bool {
	if errors.Is(err, mailer.ErrSendFailed) {
		return false
	}
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// sendWorker processes mailer_send jobs.
type sendWorker struct {
	river.WorkerDefaults[SendArgs]
	mailer Mailer
	logger *slog.Logger
}

func (w *sendWorker) Work(ctx context.Context, job *river.Job[SendArgs]) error {
	ctx = logger.WithTemplate(ctx, job.Args.Template)

	w.logger.DebugContext(ctx, "sending queued email",
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
	)

	err := job.Args.Validate()
	if err == nil {
		err = w.mailer.Send(ctx, job.Args.Params())
	}
	if err == nil {
		return nil
	}

	if Permanent(err) {
		w.logger.WarnContext(ctx, "queued email cancelled",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
		return river.JobCancel(err)
	}

	w.logger.ErrorContext(ctx, "queued email failed",
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
		slog.Any("error", err),
	)
	return err
}
