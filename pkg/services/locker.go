package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 持有者校验：KEYS[1]的值等于ARGV[1]时才删除或续期
var (
	unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker 基于 SET NX PX 的分布式锁
// 锁的值为 主机名:uuid，排查时可以看出是哪个实例持有
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	owner  string
}

// NewRedisLocker 创建RedisLocker，prefix会加在所有键名前
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "unknown"
	}
	return &RedisLocker{client: client, prefix: prefix, owner: owner}
}

// TryAcquire 尝试加锁，不等待
func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (core.Lock, error) {
	if ttl <= 0 {
		return nil, core.BadRequestf("锁的过期时间必须大于0")
	}

	lock := &redisLock{
		client: l.client,
		key:    l.prefix + key,
		token:  l.owner + ":" + uuid.NewString(),
	}
	ok, err := l.client.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("加锁 %s 失败: %w", lock.key, err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, lock.key).Result()
		logger.Debug("锁已被其他实例持有", zap.String("key", lock.key), zap.String("holder", holder))
		return nil, core.ErrLockAlreadyAcquired
	}
	return lock, nil
}

// redisLock 已持有的锁
type redisLock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLock) Key() string {
	return l.key
}

// Refresh 续期
func (l *redisLock) Refresh(ctx context.Context, ttl time.Duration) error {
	return l.run(ctx, extendScript, ttl.Milliseconds())
}

// Release 释放
func (l *redisLock) Release(ctx context.Context) error {
	return l.run(ctx, unlockScript)
}

// run 执行持有者校验脚本，返回0说明锁已不属于自己
func (l *redisLock) run(ctx context.Context, script *redis.Script, args ...interface{}) error {
	n, err := script.Run(ctx, l.client, []string{l.key}, append([]interface{}{l.token}, args...)...).Int64()
	if err != nil {
		return fmt.Errorf("锁 %s 操作失败: %w", l.key, err)
	}
	if n == 0 {
		return core.ErrLockNotHeld
	}
	return nil
}
