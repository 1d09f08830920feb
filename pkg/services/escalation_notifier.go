package services

import (
	"context"
	"encoding/json"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisEscalationNotifier 把升级事件发布到Redis频道，由通知服务订阅
type RedisEscalationNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisEscalationNotifier 创建RedisEscalationNotifier实例
func NewRedisEscalationNotifier(client redis.UniversalClient, channel string) *RedisEscalationNotifier {
	return &RedisEscalationNotifier{
		client:  client,
		channel: channel,
	}
}

// Notify 发布升级事件
func (n *RedisEscalationNotifier) Notify(ctx context.Context, event *core.EscalationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return err
	}
	logger.Debug("升级事件已发布",
		zap.String("channel", n.channel),
		zap.String("request_id", event.RequestID.String()))
	return nil
}

// LogEscalationNotifier 只记录日志，未启用Redis时使用
type LogEscalationNotifier struct{}

// Notify 记录升级事件
func (LogEscalationNotifier) Notify(ctx context.Context, event *core.EscalationEvent) error {
	logger.Warn("审批单逾期升级",
		zap.String("request_id", event.RequestID.String()),
		zap.String("module", string(event.Module)),
		zap.String("record_id", event.RecordID),
		zap.String("priority", string(event.Priority)),
		zap.Int("escalation_level", event.EscalationLevel),
		zap.Time("due_at", event.DueAt))
	return nil
}
