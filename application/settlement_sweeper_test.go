package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSettler struct {
	settled int
	err     error
	calls   int
}

func (s *stubSettler) SettleOverdue(ctx context.Context) (int, error) {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return s.settled, s.err
}

type stubRunner struct {
	interval time.Duration
	name     string
	fn       func()
}

func (r *stubRunner) Every(interval time.Duration, name string, fn func()) error {
	r.interval, r.name, r.fn = interval, name, fn
	return nil
}

func TestSettlementSweeper_Sweep(t *testing.T) {
	tests := []struct {
		name    string
		settler *stubSettler
		want    int
	}{
		{"nothing overdue", &stubSettler{}, 0},
		{"settles overdue", &stubSettler{settled: 2}, 2},
		{"partial failure still reports", &stubSettler{settled: 1, err: errors.New("auction 9: boom")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := NewSettlementSweeper(tt.settler, time.Minute, time.Second)
			assert.Equal(t, tt.want, sweeper.Sweep(context.Background()))
			assert.Equal(t, 1, tt.settler.calls)
		})
	}
}

func TestSettlementSweeper_Start(t *testing.T) {
	settler := &stubSettler{settled: 1}
	runner := &stubRunner{}
	sweeper := NewSettlementSweeper(settler, 45*time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sweeper.Start(ctx, runner))
	assert.Equal(t, 45*time.Second, runner.interval)
	assert.Equal(t, "settlement-sweeper", runner.name)

	runner.fn()
	assert.Equal(t, 1, settler.calls)

	cancel()
	runner.fn()
	assert.Equal(t, 1, settler.calls, "no sweeps after shutdown")
}
