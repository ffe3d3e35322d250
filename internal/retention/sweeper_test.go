package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	calls   int
}

func (f *fakePruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	f.calls++
	return f.deleted, nil
}

func TestSweep_UsesRetentionCutoff(t *testing.T) {
	pruner := &fakePruner{deleted: 3}
	s := NewSweeper(pruner, 30)

	s.sweep()

	require.Equal(t, 1, pruner.calls)
	expected := time.Now().UTC().AddDate(0, 0, -30)
	assert.WithinDuration(t, expected, pruner.cutoff, time.Minute)
}

func TestStart_DisabledWhenNonPositive(t *testing.T) {
	pruner := &fakePruner{}
	s := NewSweeper(pruner, 0)

	require.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
}

func TestStart_SchedulesJob(t *testing.T) {
	pruner := &fakePruner{}
	s := NewSweeper(pruner, 7)
	defer s.Stop()

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
}
