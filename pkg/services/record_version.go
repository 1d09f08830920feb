package services

import (
	"context"
	"errors"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// timeNow 当前时间，测试中替换
var timeNow = time.Now

// RecordVersionService 版本存储服务
// 每次变更写入一个不可变的新版本，审批通过后才切换为当前版本
type RecordVersionService struct {
	store    core.RecordVersionStore
	requests core.ApprovalRequestStore
	tx       core.Transactor
}

// NewRecordVersionService 创建RecordVersionService实例
func NewRecordVersionService(store core.RecordVersionStore, requests core.ApprovalRequestStore, tx core.Transactor) *RecordVersionService {
	return &RecordVersionService{
		store:    store,
		requests: requests,
		tx:       tx,
	}
}

// StageVersion 暂存新版本，记录有未完结的审批单时返回 ErrRecordLocked
func (s *RecordVersionService) StageVersion(ctx context.Context, input *core.StageVersionInput) (*core.RecordVersion, error) {
	var version *core.RecordVersion
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.requests.FindOpenByRecord(ctx, input.Module, input.RecordID)
		if err == nil {
			return core.ErrRecordLocked
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}

		version, err = s.stage(ctx, input, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// stage 写入 max+1 版本，不检查锁定
// 由审批单台账在同一事务中调用，requestID为暂存该版本的审批单
func (s *RecordVersionService) stage(ctx context.Context, input *core.StageVersionInput, requestID *uuid.UUID) (*core.RecordVersion, error) {
	if !input.Module.Valid() {
		return nil, core.BadRequestf("未知模块: %s", input.Module)
	}
	if input.RecordID == "" {
		return nil, core.BadRequestf("record_id不能为空")
	}

	next, err := s.nextVersionNumber(ctx, input.Module, input.RecordID)
	if err != nil {
		return nil, err
	}

	version := &core.RecordVersion{
		Module:            input.Module,
		RecordID:          input.RecordID,
		RecordType:        input.RecordType,
		VersionNumber:     next,
		Content:           input.Content,
		IsCurrent:         false,
		CreatedBy:         input.CreatedBy,
		CreatedAt:         timeNow().UTC(),
		ChangeSummary:     input.ChangeSummary,
		EvidenceRefs:      input.EvidenceRefs,
		ApprovalRequestID: requestID,
	}
	created, err := s.store.Create(ctx, input.Module, version)
	if err != nil {
		logger.Error("暂存版本失败", zap.Error(err),
			zap.String("module", string(input.Module)), zap.String("record_id", input.RecordID))
		return nil, err
	}
	return created, nil
}

// nextVersionNumber 下一个版本号
func (s *RecordVersionService) nextVersionNumber(ctx context.Context, module core.Module, recordID string) (int, error) {
	latest, err := s.store.MaxVersionNumber(ctx, module, recordID)
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

// Promote 把指定版本切换为当前版本
func (s *RecordVersionService) Promote(ctx context.Context, module core.Module, recordID string, versionNumber int, approvedBy string) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		target, err := s.store.FindByNumber(ctx, module, recordID, versionNumber)
		if err != nil {
			return err
		}
		if target.IsCurrent {
			return core.ErrAlreadyCurrent
		}

		if err := s.store.SetCurrent(ctx, module, recordID, versionNumber, approvedBy, timeNow().UTC()); err != nil {
			return err
		}
		logger.Info("版本已切换为当前版本",
			zap.String("module", string(module)),
			zap.String("record_id", recordID),
			zap.Int("version_number", versionNumber),
			zap.String("approved_by", approvedBy))
		return nil
	})
}

// GetCurrent 获取当前版本
func (s *RecordVersionService) GetCurrent(ctx context.Context, module core.Module, recordID string) (*core.RecordVersion, error) {
	if !module.Valid() {
		return nil, core.BadRequestf("未知模块: %s", module)
	}
	return s.store.FindCurrent(ctx, module, recordID)
}

// GetHistory 按版本号升序获取全部版本
func (s *RecordVersionService) GetHistory(ctx context.Context, module core.Module, recordID string) ([]*core.RecordVersion, error) {
	if !module.Valid() {
		return nil, core.BadRequestf("未知模块: %s", module)
	}
	return s.store.ListByRecord(ctx, module, recordID)
}
