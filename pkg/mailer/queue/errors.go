package queue

import "errors"

var (
	// ErrPoolRequired is returned when no database pool is provided.
	ErrPoolRequired = errors.New("queue: pool is required")

	// ErrMailerRequired is returned when a manager is created without a mailer.
	ErrMailerRequired = errors.New("queue: mailer is required")

	// ErrTemplateRequired is returned when a job has no template identifier.
	ErrTemplateRequired = errors.New("queue: template is required")

	// ErrAlreadyStarted is returned when starting a running manager.
	ErrAlreadyStarted = errors.New("queue: already started")

	// ErrNotStarted is returned when stopping a manager that is not running.
	ErrNotStarted = errors.New("queue: not started")

	// ErrHealthcheckFailed is returned when the manager health check fails.
	ErrHealthcheckFailed = errors.New("queue: healthcheck failed")
)
