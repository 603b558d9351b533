package application

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expiryRecorder struct {
	mu  sync.Mutex
	ids []int64
}

func (r *expiryRecorder) handle(auctionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, auctionID)
}

func (r *expiryRecorder) fired() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

func newTestScheduler() (*SnipeScheduler, *fakeTimers, *expiryRecorder) {
	timers := &fakeTimers{}
	scheduler := NewSnipeScheduler(timers)
	scheduler.now = func() time.Time { return testNow }
	recorder := &expiryRecorder{}
	scheduler.SetExpiryHandler(recorder.handle)
	return scheduler, timers, recorder
}

func TestSnipeScheduler_Schedule(t *testing.T) {
	scheduler, timers, recorder := newTestScheduler()

	endsAt := testNow.Add(5 * time.Minute)
	require.NoError(t, scheduler.Schedule(1, endsAt))

	at, ok := scheduler.Pending(1)
	require.True(t, ok)
	assert.Equal(t, endsAt, at)
	assert.Equal(t, 1, scheduler.Len())
	require.Len(t, timers.Live(), 1)

	timers.FireAll()
	assert.Equal(t, []int64{1}, recorder.fired())
	assert.Equal(t, 0, scheduler.Len())
}

func TestSnipeScheduler_ReplaceDropsStaleFire(t *testing.T) {
	scheduler, timers, recorder := newTestScheduler()

	require.NoError(t, scheduler.Schedule(1, testNow.Add(time.Minute)))
	require.NoError(t, scheduler.Schedule(1, testNow.Add(90*time.Second)))

	live := timers.Live()
	require.Len(t, live, 1, "the first timer is cancelled on replace")
	assert.Equal(t, testNow.Add(90*time.Second), live[0].at)

	// Fire both, including the cancelled one, as a racing backend could
	timers.FireAll()
	assert.Equal(t, []int64{1}, recorder.fired(), "only the current generation reaches the handler")
}

func TestSnipeScheduler_PastDueFiresImmediately(t *testing.T) {
	scheduler, timers, recorder := newTestScheduler()

	require.NoError(t, scheduler.Schedule(9, testNow.Add(-time.Second)))
	assert.Empty(t, timers.Live(), "no backend timer for an overdue auction")

	assert.Eventually(t, func() bool {
		return len(recorder.fired()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, scheduler.Len())
}

func TestSnipeScheduler_Cancel(t *testing.T) {
	scheduler, timers, recorder := newTestScheduler()

	require.NoError(t, scheduler.Schedule(1, testNow.Add(time.Minute)))
	assert.True(t, scheduler.Cancel(1))
	assert.False(t, scheduler.Cancel(1))

	_, ok := scheduler.Pending(1)
	assert.False(t, ok)

	timers.FireAll()
	assert.Empty(t, recorder.fired())
}

func TestSnipeScheduler_Stop(t *testing.T) {
	scheduler, timers, _ := newTestScheduler()

	require.NoError(t, scheduler.Schedule(1, testNow.Add(time.Minute)))
	require.NoError(t, scheduler.Schedule(2, testNow.Add(2*time.Minute)))

	scheduler.Stop()
	assert.Equal(t, 0, scheduler.Len())
	assert.Empty(t, timers.Live())

	err := scheduler.Schedule(3, testNow.Add(time.Minute))
	assert.ErrorIs(t, err, ErrSchedulerStopped)
}

func TestSnipeScheduler_BackendError(t *testing.T) {
	scheduler, timers, _ := newTestScheduler()
	timers.err = errors.New("scheduler shut down")

	err := scheduler.Schedule(1, testNow.Add(time.Minute))
	assert.Error(t, err)
	assert.Equal(t, 0, scheduler.Len())
}

func TestSnipeScheduler_IndependentAuctions(t *testing.T) {
	scheduler, timers, recorder := newTestScheduler()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, scheduler.Schedule(id, testNow.Add(time.Duration(id)*time.Minute)))
	}
	assert.Equal(t, 3, scheduler.Len())

	scheduler.Cancel(2)
	timers.FireAll()

	assert.ElementsMatch(t, []int64{1, 3}, recorder.fired())
}
