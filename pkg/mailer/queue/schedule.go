package queue

import (
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

type scheduleConfig struct {
	args SendArgs
	expr string
}

type cronSchedule struct {
	schedule cron.Schedule
}

func (s *cronSchedule) Next(current time.Time) time.Time {
	return s.schedule.Next(current)
}

func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronSchedule{schedule: schedule}, nil
}

func periodicJobs(schedules []scheduleConfig) ([]*river.PeriodicJob, error) {
	jobs := make([]*river.PeriodicJob, 0, len(schedules))
	for _, sched := range schedules {
		if err := sched.args.Validate(); err != nil {
			return nil, fmt.Errorf("queue: schedule %q: %w", sched.expr, err)
		}
		schedule, err := parseCronSchedule(sched.expr)
		if err != nil {
			return nil, fmt.Errorf("queue: invalid cron schedule %q: %w", sched.expr, err)
		}

		args := sched.args
		jobs = append(jobs, river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, nil },
			&river.PeriodicJobOpts{RunOnStart: false},
		))
	}
	return jobs, nil
}
