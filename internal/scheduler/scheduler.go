// Package scheduler triggers poll cycles on a cron schedule. A cycle that is
// still running when the next tick fires makes that tick a no-op.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Job func(ctx context.Context)

type Trigger struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New(log *slog.Logger) *Trigger {
	if log == nil {
		log = slog.Default()
	}
	logger := cronLogger{log: log}
	return &Trigger{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
	}
}

// Run registers job under spec, runs it once right away and then on every
// tick until ctx is done. It waits for a running job before returning.
func (t *Trigger) Run(ctx context.Context, spec string, job Job) error {
	wrapped := cron.FuncJob(func() { job(ctx) })

	if _, err := t.cron.AddJob(spec, wrapped); err != nil {
		return err
	}

	t.cron.Start()
	// first run goes through the same chain so it cannot overlap a tick
	t.cron.Entries()[0].WrappedJob.Run()

	<-ctx.Done()
	<-t.cron.Stop().Done()
	t.log.Info("trigger stopped")

	return ctx.Err()
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "err", err)...)
}
