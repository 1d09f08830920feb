package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocker 进程内的锁，记录加锁、续期、释放次数
type fakeLocker struct {
	mu        sync.Mutex
	held      bool
	acquired  int
	refreshed int
	released  int
}

func (l *fakeLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (core.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, core.ErrLockAlreadyAcquired
	}
	l.held = true
	l.acquired++
	return &fakeLock{locker: l, key: key}, nil
}

type fakeLock struct {
	locker *fakeLocker
	key    string
}

func (l *fakeLock) Key() string { return l.key }

func (l *fakeLock) Refresh(ctx context.Context, ttl time.Duration) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if !l.locker.held {
		return core.ErrLockNotHeld
	}
	l.locker.refreshed++
	return nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if !l.locker.held {
		return core.ErrLockNotHeld
	}
	l.locker.held = false
	l.locker.released++
	return nil
}

func newTestScheduler(t *testing.T, locker core.Locker, ttl time.Duration) *Scheduler {
	t.Helper()
	c := buildComponents(newMemoryStorage(), services.LogEscalationNotifier{})
	require.NoError(t, c.slaConfigs.EnsureDefaults(context.Background(), ""))
	return NewScheduler(c.monitor, locker, "0 */5 * * * *", ttl)
}

func TestScheduler_ScanAcquiresAndReleases(t *testing.T) {
	locker := &fakeLocker{}
	s := newTestScheduler(t, locker, time.Minute)

	s.scan(context.Background())

	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.False(t, locker.held)
}

func TestScheduler_ScanSkippedWhenLockHeld(t *testing.T) {
	locker := &fakeLocker{held: true}
	s := newTestScheduler(t, locker, time.Minute)

	before := testutil.ToFloat64(monitoring.GlobalMetrics.SLAScanSkipped)
	s.scan(context.Background())

	assert.Equal(t, before+1, testutil.ToFloat64(monitoring.GlobalMetrics.SLAScanSkipped))
	assert.Equal(t, 0, locker.acquired)
	assert.True(t, locker.held)
}

func TestScheduler_KeepAliveRefreshes(t *testing.T) {
	locker := &fakeLocker{}
	s := newTestScheduler(t, locker, 20*time.Millisecond)

	lock, err := locker.TryAcquire(context.Background(), config.SLAScanLockerKey, s.lockTTL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.keepAlive(ctx, lock)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		return locker.refreshed >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive没有退出")
	}
}

func TestScheduler_WithoutLocker(t *testing.T) {
	s := newTestScheduler(t, nil, time.Minute)
	assert.NotPanics(t, func() { s.scan(context.Background()) })
	require.NoError(t, s.Start())
	s.Stop()
}
