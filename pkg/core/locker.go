package core

import (
	"context"
	"time"
)

// Locker 分布式锁
// 多副本部署时保证SLA扫描同一时刻只在一个实例上执行
type Locker interface {
	// TryAcquire 尝试加锁，已被其他实例持有时返回 ErrLockAlreadyAcquired
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock 持有中的锁
type Lock interface {
	Key() string

	// Refresh 续期，锁已过期或被他人持有时返回 ErrLockNotHeld
	Refresh(ctx context.Context, ttl time.Duration) error

	// Release 释放，锁已过期或被他人持有时返回 ErrLockNotHeld
	Release(ctx context.Context) error
}
