package services

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis 连接测试用Redis，不可用时跳过
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("short模式跳过Redis测试")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis不可用(%s): %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

const testLockPrefix = "test:esg-approval:"

func TestRedisLocker_TryAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	locker := NewRedisLocker(client, testLockPrefix)
	key := "sla:scan:" + uuid.NewString()

	lock, err := locker.TryAcquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, testLockPrefix+key, lock.Key())

	holder, err := client.Get(ctx, lock.Key()).Result()
	require.NoError(t, err)
	assert.Contains(t, holder, ":")

	// 持有期间其他调用拿不到锁
	_, err = locker.TryAcquire(ctx, key, 10*time.Second)
	assert.ErrorIs(t, err, core.ErrLockAlreadyAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), core.ErrLockNotHeld)

	again, err := locker.TryAcquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_InvalidTTL(t *testing.T) {
	locker := NewRedisLocker(newTestRedis(t), testLockPrefix)
	_, err := locker.TryAcquire(context.Background(), "ttl", 0)
	assert.ErrorIs(t, err, core.ErrBadRequest)
}

func TestRedisLocker_Refresh(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	locker := NewRedisLocker(client, testLockPrefix)

	lock, err := locker.TryAcquire(ctx, "refresh:"+uuid.NewString(), time.Second)
	require.NoError(t, err)
	defer lock.Release(ctx)

	require.NoError(t, lock.Refresh(ctx, time.Minute))
	ttl, err := client.PTTL(ctx, lock.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)

	// 其他持有者不能续期和释放
	other := &redisLock{client: client, key: lock.Key(), token: "other"}
	assert.ErrorIs(t, other.Refresh(ctx, time.Minute), core.ErrLockNotHeld)
	assert.ErrorIs(t, other.Release(ctx), core.ErrLockNotHeld)
}

func TestRedisLocker_Concurrent(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisLocker(newTestRedis(t), testLockPrefix)
	key := "concurrent:" + uuid.NewString()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.TryAcquire(ctx, key, 10*time.Second); err == nil {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, acquired)
}

func TestRedisEscalationNotifier(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	channel := "test:escalation:" + uuid.NewString()

	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	event := &core.EscalationEvent{
		RequestID:       uuid.New(),
		Module:          core.ModuleBRSRReport,
		RecordID:        "brsr-1",
		Priority:        core.PriorityCritical,
		EscalationLevel: 2,
	}
	require.NoError(t, NewRedisEscalationNotifier(client, channel).Notify(ctx, event))

	select {
	case msg := <-pubsub.Channel():
		var received core.EscalationEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &received))
		assert.Equal(t, event.RequestID, received.RequestID)
		assert.Equal(t, core.PriorityCritical, received.Priority)
	case <-time.After(3 * time.Second):
		t.Fatal("没有收到升级事件")
	}
}
