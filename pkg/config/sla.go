package config

import "time"

// sla SLA监控配置
type sla struct {
	ScanCron          string        // SLA扫描的cron表达式（秒级）
	ScanLockTTL       time.Duration // 扫描分布式锁的过期时间
	ConfigFile        string        // 各模块SLA策略的YAML文件，为空时使用内置默认值
	EscalationChannel string        // 升级事件发布的Redis频道
	CollectInterval   time.Duration // 业务指标收集间隔
}

// SLA 全局SLA配置
var SLA *sla

func parseSLA() {
	SLA = &sla{
		ScanCron:          GetDefaultEnv("SLA_SCAN_CRON", "0 */5 * * * *"),
		ScanLockTTL:       GetDefaultEnvDuration("SLA_SCAN_LOCK_TTL", 4*time.Minute),
		ConfigFile:        GetDefaultEnv("SLA_CONFIG_FILE", ""),
		EscalationChannel: GetDefaultEnv("SLA_ESCALATION_CHANNEL", "esg:approval:escalations"),
		CollectInterval:   GetDefaultEnvDuration("METRICS_COLLECT_INTERVAL", 30*time.Second),
	}
}

func init() {
	parseSLA()
}
