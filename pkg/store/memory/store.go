// Package memory 内存存储
//
// 实现与 pkg/store 相同的存储接口，数据保存在进程内，用于单机演示和单元测试。
// 写操作和事务通过同一把锁串行执行，事务失败时整体回滚到快照。
package memory

import (
	"context"
	"sync"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
)

// txMarker ctx中标记当前处于事务内
type txMarker struct{}

// Store 内存存储
type Store struct {
	txMu sync.Mutex   // 事务和事务外的写操作互斥
	mu   sync.RWMutex // 保护下面的数据

	versions   map[core.Module]map[string][]*core.RecordVersion
	requests   map[uuid.UUID]*core.ApprovalRequest
	history    map[uuid.UUID][]*core.ApprovalHistory
	slaConfigs map[core.Module]*core.ApprovalSlaConfig
}

// New 创建内存存储
func New() *Store {
	return &Store{
		versions:   map[core.Module]map[string][]*core.RecordVersion{},
		requests:   map[uuid.UUID]*core.ApprovalRequest{},
		history:    map[uuid.UUID][]*core.ApprovalHistory{},
		slaConfigs: map[core.Module]*core.ApprovalSlaConfig{},
	}
}

// RecordVersions 版本存储
func (s *Store) RecordVersions() core.RecordVersionStore {
	return &recordVersionStore{s: s}
}

// Requests 审批单存储
func (s *Store) Requests() core.ApprovalRequestStore {
	return &approvalRequestStore{s: s}
}

// History 审批历史存储
func (s *Store) History() core.ApprovalHistoryStore {
	return &approvalHistoryStore{s: s}
}

// SlaConfigs SLA配置存储
func (s *Store) SlaConfigs() core.ApprovalSlaConfigStore {
	return &slaConfigStore{s: s}
}

// Transactor 事务执行器
func (s *Store) Transactor() core.Transactor {
	return &transactor{s: s}
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txMarker{}).(bool)
	return ok
}

// write 执行写操作，事务外的写操作需要等待正在执行的事务
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// read 执行读操作
func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// snapshot 数据快照，用于事务回滚
type snapshot struct {
	versions   map[core.Module]map[string][]*core.RecordVersion
	requests   map[uuid.UUID]*core.ApprovalRequest
	history    map[uuid.UUID][]*core.ApprovalHistory
	slaConfigs map[core.Module]*core.ApprovalSlaConfig
}

func (s *Store) takeSnapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &snapshot{
		versions:   make(map[core.Module]map[string][]*core.RecordVersion, len(s.versions)),
		requests:   make(map[uuid.UUID]*core.ApprovalRequest, len(s.requests)),
		history:    make(map[uuid.UUID][]*core.ApprovalHistory, len(s.history)),
		slaConfigs: make(map[core.Module]*core.ApprovalSlaConfig, len(s.slaConfigs)),
	}
	for module, records := range s.versions {
		copied := make(map[string][]*core.RecordVersion, len(records))
		for recordID, versions := range records {
			list := make([]*core.RecordVersion, 0, len(versions))
			for _, v := range versions {
				list = append(list, cloneVersion(v))
			}
			copied[recordID] = list
		}
		snap.versions[module] = copied
	}
	for id, r := range s.requests {
		snap.requests[id] = r.Clone()
	}
	for id, entries := range s.history {
		// 历史只追加，复制切片即可
		snap.history[id] = append([]*core.ApprovalHistory{}, entries...)
	}
	for module, cfg := range s.slaConfigs {
		c := *cfg
		snap.slaConfigs[module] = &c
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = snap.versions
	s.requests = snap.requests
	s.history = snap.history
	s.slaConfigs = snap.slaConfigs
}

// transactor 内存事务，同一时刻只有一个事务在执行
type transactor struct {
	s *Store
}

// RunInTransaction 在事务中执行fn，fn返回错误或panic时回滚
func (t *transactor) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.takeSnapshot()
	defer func() {
		if r := recover(); r != nil {
			t.s.restore(snap)
			panic(r)
		}
		if err != nil {
			t.s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txMarker{}, true))
}
