package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/dmitrymomot/missive/pkg/logger"
)

const defaultMaxWorkers = 100

// Enqueuer inserts send jobs without working them.
// Use it in processes that only produce email, such as web handlers.
type Enqueuer struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger
}

// NewEnqueuer creates an insert-only river client on pool.
// Queue, worker and schedule options are ignored.
func NewEnqueuer(pool *pgxpool.Pool, opts ...Option) (*Enqueuer, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create enqueuer client: %w", err)
	}

	return &Enqueuer{pool: pool, client: client, logger: cfg.logger}, nil
}

// Enqueue schedules a send. Arguments are validated before insertion so
// malformed attachments never reach a worker.
func (e *Enqueuer) Enqueue(ctx context.Context, args SendArgs, opts ...EnqueueOption) error {
	if err := args.Validate(); err != nil {
		return err
	}
	if _, err := e.client.Insert(ctx, args, buildInsertOpts(args, opts...)); err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// EnqueueTx schedules a send inside tx. The job becomes visible when tx commits.
func (e *Enqueuer) EnqueueTx(ctx context.Context, tx pgx.Tx, args SendArgs, opts ...EnqueueOption) error {
	if err := args.Validate(); err != nil {
		return err
	}
	if _, err := e.client.InsertTx(ctx, tx, args, buildInsertOpts(args, opts...)); err != nil {
		return fmt.Errorf("queue: enqueue tx: %w", err)
	}
	return nil
}

// Manager enqueues and works send jobs.
type Manager struct {
	*Enqueuer
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager creates a river client that delivers queued sends through m.
// Jobs can be enqueued before Start is called.
func NewManager(pool *pgxpool.Pool, m Mailer, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	if m == nil {
		return nil, ErrMailerRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}
	if cfg.maxWorkers == 0 {
		cfg.maxWorkers = defaultMaxWorkers
	}

	queues := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
	}
	for name, workers := range cfg.queues {
		queues[name] = river.QueueConfig{MaxWorkers: workers}
	}

	periodic, err := periodicJobs(cfg.schedules)
	if err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &sendWorker{mailer: m, logger: cfg.logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       queues,
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create client: %w", err)
	}

	return &Manager{
		Enqueuer: &Enqueuer{pool: pool, client: client, logger: cfg.logger},
		logger:   cfg.logger,
	}, nil
}

// Start begins working jobs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("queue: start client: %w", err)
	}

	m.started = true
	m.logger.Info("mail queue started")
	return nil
}

// Stop waits for running jobs to finish and stops the client.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("queue: stop client: %w", err)
	}

	m.started = false
	m.logger.Info("mail queue stopped")
	return nil
}
