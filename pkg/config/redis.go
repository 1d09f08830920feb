package config

import (
	"strings"
	"time"
)

// redis Redis配置
// 未启用时SLA扫描不加锁，升级事件只写日志
type redis struct {
	Enabled     bool
	Addrs       []string // 多个地址时使用集群模式
	Password    string
	DB          int // 集群模式下忽略
	PoolSize    int
	DialTimeout time.Duration
	KeyPrefix   string // 分布式锁的键名前缀
}

// Redis 全局Redis配置
var Redis *redis

// splitAddrs 解析逗号分隔的地址列表
func splitAddrs(value string) []string {
	var addrs []string
	for _, addr := range strings.Split(value, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

func parseRedis() {
	Redis = &redis{
		Enabled:     GetDefaultEnvBool("REDIS_ENABLED", false),
		Addrs:       splitAddrs(GetDefaultEnv("REDIS_ADDRS", "127.0.0.1:6379")),
		Password:    GetDefaultEnv("REDIS_PASSWORD", ""),
		DB:          GetDefaultEnvInt("REDIS_DB", 0),
		PoolSize:    GetDefaultEnvInt("REDIS_POOL_SIZE", 10),
		DialTimeout: GetDefaultEnvDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		KeyPrefix:   GetDefaultEnv("REDIS_KEY_PREFIX", "esg-approval:"),
	}
}

func init() {
	parseRedis()
}
