package queue

import "log/slog"

type config struct {
	logger     *slog.Logger
	queues     map[string]int
	schedules  []scheduleConfig
	maxWorkers int
}

func newConfig() *config {
	return &config{queues: make(map[string]int)}
}

// Option configures an Enqueuer or Manager.
type Option func(*config)

// WithLogger sets the logger passed to river and used by the worker.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueue adds a named queue with its own worker limit.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithMaxWorkers sets the worker limit of the default queue. Default: 100.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithSchedule sends args on a five-field cron schedule, for example
// "0 9 * * 1" for a Monday morning digest.
func WithSchedule(expr string, args SendArgs) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{expr: expr, args: args})
	}
}
