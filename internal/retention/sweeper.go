// Package retention prunes stored generations past their retention window on
// a nightly schedule.
package retention

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes generation records created before the cutoff and reports how
// many rows went away.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper runs the retention job at midnight UTC.
type Sweeper struct {
	pruner Pruner
	days   int
	cron   *cron.Cron
}

func NewSweeper(pruner Pruner, days int) *Sweeper {
	return &Sweeper{
		pruner: pruner,
		days:   days,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
	}
}

// Start schedules the nightly sweep. A non-positive retention disables it.
func (s *Sweeper) Start() error {
	if s.days <= 0 {
		log.Println("[info] retention sweep disabled")
		return nil
	}

	_, err := s.cron.AddFunc("0 0 0 * * *", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[info] retention sweep scheduled, keeping %d days", s.days)
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.days)
	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[error] retention sweep failed: %v", err)
		return
	}
	log.Printf("[info] retention sweep removed %d generations older than %s", deleted, cutoff.Format(time.RFC3339))
}
