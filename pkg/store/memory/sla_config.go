package memory

import (
	"context"
	"sort"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
)

type slaConfigStore struct {
	s *Store
}

func (c *slaConfigStore) FindByModule(ctx context.Context, module core.Module) (*core.ApprovalSlaConfig, error) {
	var found *core.ApprovalSlaConfig
	c.s.read(func() {
		if cfg, ok := c.s.slaConfigs[module]; ok {
			copied := *cfg
			found = &copied
		}
	})
	if found == nil {
		return nil, core.ErrNotFound
	}
	return found, nil
}

func (c *slaConfigStore) List(ctx context.Context) ([]*core.ApprovalSlaConfig, error) {
	configs := []*core.ApprovalSlaConfig{}
	c.s.read(func() {
		for _, cfg := range c.s.slaConfigs {
			copied := *cfg
			configs = append(configs, &copied)
		}
	})
	sort.Slice(configs, func(i, j int) bool { return configs[i].Module < configs[j].Module })
	return configs, nil
}

func (c *slaConfigStore) Save(ctx context.Context, cfg *core.ApprovalSlaConfig) (*core.ApprovalSlaConfig, error) {
	err := c.s.write(ctx, func() error {
		now := time.Now().UTC()
		if existing, ok := c.s.slaConfigs[cfg.Module]; ok {
			cfg.CreatedAt = existing.CreatedAt
		} else if cfg.CreatedAt.IsZero() {
			cfg.CreatedAt = now
		}
		cfg.UpdatedAt = now

		copied := *cfg
		c.s.slaConfigs[cfg.Module] = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
