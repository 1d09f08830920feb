package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultSlaConfigs 内置的各模块SLA策略
func DefaultSlaConfigs() []*core.ApprovalSlaConfig {
	defaults := []struct {
		module   core.Module
		hours    int
		dual     bool
		escalate int
	}{
		{core.ModuleESGMetrics, 72, false, 24},
		{core.ModuleESGCAP, 120, false, 24},
		{core.ModuleGHGAccounting, 48, true, 24},
		{core.ModuleBRSRReport, 96, true, 24},
		{core.ModuleESGDD, 72, false, 24},
	}

	configs := make([]*core.ApprovalSlaConfig, 0, len(defaults))
	for _, d := range defaults {
		configs = append(configs, &core.ApprovalSlaConfig{
			Module:               d.module,
			SlaHours:             d.hours,
			RequiresDualApproval: d.dual,
			EscalationEnabled:    true,
			EscalationHours:      d.escalate,
			MinCheckerRole:       core.RoleChecker,
		})
	}
	return configs
}

// slaConfigFile SLA策略文件
//
//	modules:
//	  ghg_accounting:
//	    sla_hours: 36
//	    dual_approval_rule: materiality_flag
type slaConfigFile struct {
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LoadSlaConfigFile 读取SLA策略文件，文件中未出现的字段沿用内置默认值
func LoadSlaConfigFile(path string) ([]*core.ApprovalSlaConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取SLA策略文件失败: %w", err)
	}

	var file slaConfigFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("解析SLA策略文件失败: %w", err)
	}

	defaults := map[core.Module]*core.ApprovalSlaConfig{}
	for _, cfg := range DefaultSlaConfigs() {
		defaults[cfg.Module] = cfg
	}

	configs := []*core.ApprovalSlaConfig{}
	for name, node := range file.Modules {
		module := core.Module(name)
		cfg, ok := defaults[module]
		if !ok {
			return nil, fmt.Errorf("SLA策略文件中有未知模块: %s", name)
		}
		if err := node.Decode(cfg); err != nil {
			return nil, fmt.Errorf("解析模块 %s 的SLA策略失败: %w", name, err)
		}
		cfg.Module = module
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// SlaConfigService 模块SLA配置服务
type SlaConfigService struct {
	store core.ApprovalSlaConfigStore
	rule  *DualApprovalRule
}

// NewSlaConfigService 创建SlaConfigService实例
func NewSlaConfigService(store core.ApprovalSlaConfigStore, rule *DualApprovalRule) *SlaConfigService {
	return &SlaConfigService{
		store: store,
		rule:  rule,
	}
}

// EnsureDefaults 写入缺失模块的默认配置，策略文件中的模块总是以文件为准
func (s *SlaConfigService) EnsureDefaults(ctx context.Context, file string) error {
	overrides := map[core.Module]*core.ApprovalSlaConfig{}
	if file != "" {
		configs, err := LoadSlaConfigFile(file)
		if err != nil {
			return err
		}
		for _, cfg := range configs {
			if err := s.rule.Validate(cfg.DualApprovalRule); err != nil {
				return fmt.Errorf("模块 %s: %w", cfg.Module, err)
			}
			overrides[cfg.Module] = cfg
		}
	}

	for _, cfg := range DefaultSlaConfigs() {
		if override, ok := overrides[cfg.Module]; ok {
			if _, err := s.store.Save(ctx, override); err != nil {
				return err
			}
			logger.Info("使用策略文件中的SLA配置", zap.String("module", string(cfg.Module)),
				zap.Int("sla_hours", override.SlaHours))
			continue
		}

		_, err := s.store.FindByModule(ctx, cfg.Module)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if _, err := s.store.Save(ctx, cfg); err != nil {
			return err
		}
		logger.Info("写入默认SLA配置", zap.String("module", string(cfg.Module)),
			zap.Int("sla_hours", cfg.SlaHours))
	}
	return nil
}

// Get 获取模块配置，不存在时返回 ErrSlaConfigNotFound
func (s *SlaConfigService) Get(ctx context.Context, module core.Module) (*core.ApprovalSlaConfig, error) {
	cfg, err := s.store.FindByModule(ctx, module)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrSlaConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// List 全部模块配置
func (s *SlaConfigService) List(ctx context.Context) ([]*core.ApprovalSlaConfig, error) {
	return s.store.List(ctx)
}

// Update 更新模块配置，只有admin可以修改
// 已发起的审批单的截止时间不受影响
func (s *SlaConfigService) Update(ctx context.Context, cfg *core.ApprovalSlaConfig, actor *core.Actor) (*core.ApprovalSlaConfig, error) {
	if actor == nil || !actor.Role.AtLeast(core.RoleAdmin) {
		return nil, core.ErrInsufficientRole
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.rule.Validate(cfg.DualApprovalRule); err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, cfg)
	if err != nil {
		logger.Error("更新SLA配置失败", zap.Error(err), zap.String("module", string(cfg.Module)))
		return nil, err
	}
	logger.Info("SLA配置已更新",
		zap.String("module", string(cfg.Module)),
		zap.Int("sla_hours", cfg.SlaHours),
		zap.Bool("requires_dual_approval", cfg.RequiresDualApproval),
		zap.String("actor_id", actor.ID))
	return saved, nil
}
