package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fixture 基于内存存储组装的审批引擎
type fixture struct {
	store    *memory.Store
	registry *RecordRegistry
	rule     *DualApprovalRule
	configs  *SlaConfigService
	versions *RecordVersionService
	history  *ApprovalHistoryService
	ledger   *ApprovalRequestService
	engine   *WorkflowEngine
	monitor  *SLAMonitor
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, memory.New(), nil)
}

// newFixtureWith historyStore不为空时替换审批历史存储
func newFixtureWith(t *testing.T, store *memory.Store, historyStore core.ApprovalHistoryStore) *fixture {
	t.Helper()
	if historyStore == nil {
		historyStore = store.History()
	}

	f := &fixture{
		store:    store,
		registry: DefaultRecordRegistry(),
		rule:     NewDualApprovalRule(),
		notifier: &recordingNotifier{},
	}
	tx := store.Transactor()
	f.configs = NewSlaConfigService(store.SlaConfigs(), f.rule)
	f.versions = NewRecordVersionService(store.RecordVersions(), store.Requests(), tx)
	f.history = NewApprovalHistoryService(store.History(), store.Requests())
	f.ledger = NewApprovalRequestService(store.Requests(), historyStore, f.versions, f.configs, f.registry, f.rule, tx)
	f.engine = NewWorkflowEngine(store.Requests(), historyStore, f.versions, f.configs, tx)
	f.monitor = NewSLAMonitor(store.Requests(), historyStore, f.configs, f.notifier, tx)

	require.NoError(t, f.configs.EnsureDefaults(context.Background(), ""))
	return f
}

// setNow 固定当前时间，测试结束后恢复
func setNow(t *testing.T, now time.Time) {
	t.Helper()
	original := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = original })
}

// submit 发起并立即提交一个变更
func (f *fixture) submit(t *testing.T, module core.Module, recordType, recordID string, data string) *core.ApprovalRequest {
	t.Helper()
	request, err := f.ledger.CreateRequest(context.Background(), &core.CreateRequestInput{
		Module:        module,
		RecordID:      recordID,
		RecordType:    recordType,
		MakerID:       "maker-1",
		MakerRole:     core.RoleMaker,
		CurrentData:   json.RawMessage(data),
		ChangeSummary: "update " + recordID,
		SubmitNow:     true,
	})
	require.NoError(t, err)
	return request
}

// do 执行一次流转
func (f *fixture) do(request *core.ApprovalRequest, action core.Action, actorID string, role core.Role) (*TransitionResult, error) {
	return f.engine.Transition(context.Background(), &TransitionInput{
		RequestID: request.ID,
		Action:    action,
		ActorID:   actorID,
		ActorRole: role,
	})
}

// recordingNotifier 记录升级事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []*core.EscalationEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event *core.EscalationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// failingHistoryStore 指定动作追加历史时失败
type failingHistoryStore struct {
	core.ApprovalHistoryStore
	failOn core.Action
}

var errHistoryUnavailable = errors.New("history store unavailable")

func (s *failingHistoryStore) Append(ctx context.Context, entry *core.ApprovalHistory) (*core.ApprovalHistory, error) {
	if entry.Action == s.failOn {
		return nil, errHistoryUnavailable
	}
	return s.ApprovalHistoryStore.Append(ctx, entry)
}

// barrierRequestStore 所有调用方都读取到审批单后才返回，用于构造并发读
type barrierRequestStore struct {
	core.ApprovalRequestStore
	wg *sync.WaitGroup
}

func (s *barrierRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*core.ApprovalRequest, error) {
	request, err := s.ApprovalRequestStore.FindByID(ctx, id)
	s.wg.Done()
	s.wg.Wait()
	return request, err
}

// laggingVersionStore 最大版本号落后一个，模拟另一个事务已写入同号版本
type laggingVersionStore struct {
	core.RecordVersionStore
}

func (s *laggingVersionStore) MaxVersionNumber(ctx context.Context, module core.Module, recordID string) (int, error) {
	latest, err := s.RecordVersionStore.MaxVersionNumber(ctx, module, recordID)
	if err != nil || latest == 0 {
		return latest, err
	}
	return latest - 1, nil
}
