package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeItems answers ListPendingCreatedBefore the way the status index does:
// Pending postings strictly older than the cutoff.
type fakeItems struct {
	mu       sync.Mutex
	postings []domain.Posting
	casErr   map[string]error
}

func (f *fakeItems) ListPendingCreatedBefore(_ context.Context, t domain.ItemType, cutoff time.Time) ([]domain.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Posting
	for _, p := range f.postings {
		if p.ItemType == t && p.Status == domain.StatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeItems) CompareAndSwapStatus(_ context.Context, t domain.ItemType, itemID string, from, to domain.ItemStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.casErr[itemID]; err != nil {
		return err
	}
	for i := range f.postings {
		p := &f.postings[i]
		if p.ItemID == itemID && p.ItemType == t {
			if p.Status != from {
				return domain.ErrConflict
			}
			p.Status = to
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeItems) status(id string) domain.ItemStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.postings {
		if p.ItemID == id {
			return p.Status
		}
	}
	return -1
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(recipientID, title, content string, t domain.NotificationType, relatedID string) {
	m.Called(recipientID, title, content, t, relatedID)
}

var sweepNow = time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return sweepNow.AddDate(0, 0, -n) }

func newSweeper(items *fakeItems, n *mockNotifier) *Sweeper {
	sw := New(items, n)
	sw.now = func() time.Time { return sweepNow }
	return sw
}

func TestSweepExpired_OnlyStalePendingItems(t *testing.T) {
	items := &fakeItems{postings: []domain.Posting{
		{ItemID: "old-lost", ItemType: domain.ItemTypeLost, Title: "Umbrella", PublisherUserID: "u1", Status: domain.StatusPending, CreatedAt: daysAgo(31)},
		{ItemID: "young-found", ItemType: domain.ItemTypeFound, Title: "Keys", PublisherUserID: "u2", Status: domain.StatusPending, CreatedAt: daysAgo(29)},
		{ItemID: "old-claimed", ItemType: domain.ItemTypeFound, Title: "Phone", PublisherUserID: "u3", Status: domain.StatusClaimed, CreatedAt: daysAgo(60)},
	}}
	n := &mockNotifier{}
	n.On("Notify", "u1", "Item status changed", mock.Anything, domain.NotificationSystem, "old-lost").Return().Once()

	res, err := newSweeper(items, n).SweepExpired(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 1, Expired: 1}, res)
	assert.Equal(t, domain.StatusExpired, items.status("old-lost"))
	assert.Equal(t, domain.StatusPending, items.status("young-found"))
	assert.Equal(t, domain.StatusClaimed, items.status("old-claimed"))
	n.AssertExpectations(t)
	n.AssertNumberOfCalls(t, "Notify", 1)
}

func TestSweepExpired_SecondRunIsNoop(t *testing.T) {
	items := &fakeItems{postings: []domain.Posting{
		{ItemID: "a", ItemType: domain.ItemTypeLost, PublisherUserID: "u1", Status: domain.StatusPending, CreatedAt: daysAgo(40)},
	}}
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	sw := newSweeper(items, n)

	_, err := sw.SweepExpired(context.Background(), 30)
	require.NoError(t, err)
	res, err := sw.SweepExpired(context.Background(), 30)
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	n.AssertNumberOfCalls(t, "Notify", 1)
}

func TestSweepExpired_FailuresAreSkipped(t *testing.T) {
	items := &fakeItems{
		postings: []domain.Posting{
			{ItemID: "broken", ItemType: domain.ItemTypeLost, PublisherUserID: "u1", Status: domain.StatusPending, CreatedAt: daysAgo(40)},
			{ItemID: "raced", ItemType: domain.ItemTypeLost, PublisherUserID: "u2", Status: domain.StatusPending, CreatedAt: daysAgo(40)},
			{ItemID: "fine", ItemType: domain.ItemTypeFound, PublisherUserID: "u3", Status: domain.StatusPending, CreatedAt: daysAgo(40)},
		},
		casErr: map[string]error{
			"broken": errors.New("throttled"),
			"raced":  domain.ErrConflict,
		},
	}
	n := &mockNotifier{}
	n.On("Notify", "u3", mock.Anything, mock.Anything, domain.NotificationSystem, "fine").Return()

	res, err := newSweeper(items, n).SweepExpired(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 3, Expired: 1, Failed: 1}, res)
	n.AssertNumberOfCalls(t, "Notify", 1)
}

func TestSweepExpired_RejectsNonPositiveThreshold(t *testing.T) {
	_, err := newSweeper(&fakeItems{}, &mockNotifier{}).SweepExpired(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// --- scheduler ---

type mockLocker struct{ mock.Mock }

func (m *mockLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, name, ttl)
	release, _ := args.Get(0).(func())
	return release, args.Bool(1), args.Error(2)
}

type mockStats struct{ mock.Mock }

func (m *mockStats) Statistics(ctx context.Context) (*item.Statistics, error) {
	args := m.Called(ctx)
	if s, _ := args.Get(0).(*item.Statistics); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func staleItems() *fakeItems {
	return &fakeItems{postings: []domain.Posting{
		{ItemID: "a", ItemType: domain.ItemTypeLost, PublisherUserID: "u1", Status: domain.StatusPending, CreatedAt: daysAgo(40)},
	}}
}

func TestRunOnce_HoldsLockAndReleases(t *testing.T) {
	items := staleItems()
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	released := false
	lk := &mockLocker{}
	lk.On("TryLock", mock.Anything, lockName, 5*time.Minute).Return(func() { released = true }, true, nil)

	s := NewScheduler(newSweeper(items, n), nil, lk, config.SweeperConfig{ThresholdDays: 30, LockTTL: 5 * time.Minute})
	assert.True(t, s.RunOnce(context.Background()))
	assert.True(t, released)
	assert.Equal(t, domain.StatusExpired, items.status("a"))
}

func TestRunOnce_SkipsWhenAnotherInstanceHoldsLock(t *testing.T) {
	items := staleItems()
	lk := &mockLocker{}
	lk.On("TryLock", mock.Anything, lockName, mock.Anything).Return(func() {}, false, nil)

	s := NewScheduler(newSweeper(items, &mockNotifier{}), nil, lk, config.SweeperConfig{ThresholdDays: 30})
	assert.False(t, s.RunOnce(context.Background()))
	assert.Equal(t, domain.StatusPending, items.status("a"))
}

func TestRunOnce_SkipsWhenLockErrors(t *testing.T) {
	items := staleItems()
	lk := &mockLocker{}
	lk.On("TryLock", mock.Anything, lockName, mock.Anything).Return(nil, false, errors.New("redis down"))

	s := NewScheduler(newSweeper(items, &mockNotifier{}), nil, lk, config.SweeperConfig{ThresholdDays: 30})
	assert.False(t, s.RunOnce(context.Background()))
	assert.Equal(t, domain.StatusPending, items.status("a"))
}

func TestRunOnce_WithoutLocker(t *testing.T) {
	items := staleItems()
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	s := NewScheduler(newSweeper(items, n), nil, nil, config.SweeperConfig{ThresholdDays: 30})
	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, domain.StatusExpired, items.status("a"))
}

func TestStart_LogsStatisticsAndStops(t *testing.T) {
	called := make(chan struct{}, 1)
	st := &mockStats{}
	st.On("Statistics", mock.Anything).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	}).Return(&item.Statistics{Lost: item.StatusCounts{"Pending": 1}}, nil)

	s := NewScheduler(newSweeper(&fakeItems{}, &mockNotifier{}), st, nil,
		config.SweeperConfig{Hour: 2, ThresholdDays: 30, StatsInterval: 10 * time.Millisecond})
	stop := s.Start()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("statistics were never logged")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	before := time.Date(2026, 6, 1, 1, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 6, 1, 2, 0, 0, 0, loc), nextRun(before, 2))

	exactly := time.Date(2026, 6, 1, 2, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 6, 2, 2, 0, 0, 0, loc), nextRun(exactly, 2))

	after := time.Date(2026, 12, 31, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2027, 1, 1, 2, 0, 0, 0, loc), nextRun(after, 2))

	assert.Equal(t, 2, nextRun(before, 99).Hour())
}
