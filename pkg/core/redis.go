package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	redisClient redis.UniversalClient
	redisMu     sync.Mutex
)

// GetRedis 返回共享的Redis客户端，首次调用时建立连接
// 配置了多个地址时为集群客户端；断线重连由go-redis的连接池处理
func GetRedis() (redis.UniversalClient, error) {
	redisMu.Lock()
	defer redisMu.Unlock()

	if redisClient != nil {
		return redisClient, nil
	}

	cfg := config.Redis
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       cfg.Addrs,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接Redis %v 失败: %w", cfg.Addrs, err)
	}

	logger.Info("Redis已连接", zap.Strings("addrs", cfg.Addrs), zap.Int("pool_size", cfg.PoolSize))
	redisClient = client
	return redisClient, nil
}

// CloseRedis 关闭共享客户端
func CloseRedis() error {
	redisMu.Lock()
	defer redisMu.Unlock()

	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	return err
}
