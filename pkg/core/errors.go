package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrConflict 记录冲突（已存在）
	ErrConflict = errors.New("记录已存在")
	// ErrBadRequest 请求参数错误
	ErrBadRequest = errors.New("请求参数错误")

	// ErrUnauthorized token 校验错误
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden 权限不足
	ErrForbidden = errors.New("权限不足")
	// ErrInternalServerError 内部服务器错误
	ErrInternalServerError = errors.New("内部服务器错误")

	// ErrLockAlreadyAcquired 分布式锁已被其他实例持有
	ErrLockAlreadyAcquired = errors.New("lock already acquired")
	// ErrLockNotHeld 锁已过期或被其他实例持有
	ErrLockNotHeld = errors.New("lock not held")
)

// 审批流相关错误
var (
	// ErrInvalidTransition 当前状态下不允许该操作
	ErrInvalidTransition = errors.New("当前状态不允许该操作")
	// ErrSeparationOfDuty 发起人不能审核自己提交的变更
	ErrSeparationOfDuty = errors.New("违反职责分离：发起人不能审核自己的变更")
	// ErrMakerOnly 只有发起人可以执行该操作
	ErrMakerOnly = errors.New("只有发起人可以执行该操作")
	// ErrInsufficientRole 角色等级不足
	ErrInsufficientRole = errors.New("角色权限不足")
	// ErrDuplicateApprover 双人审批需要两个不同的审核人
	ErrDuplicateApprover = errors.New("双人审批需要另一位审核人")
	// ErrStaleTransition 审批单已被他人更新，需要重新读取后重试
	ErrStaleTransition = errors.New("审批单已被他人更新，请刷新后重试")

	// ErrRecordLocked 记录已有未完结的审批单
	ErrRecordLocked = errors.New("记录已有未完结的审批单，暂不能修改")
	// ErrDuplicateRequest 同一记录重复发起审批
	ErrDuplicateRequest = errors.New("该记录已存在未完结的审批单")

	// ErrVersionNotFound 版本不存在
	ErrVersionNotFound = errors.New("版本不存在")
	// ErrAlreadyCurrent 版本已经是当前版本
	ErrAlreadyCurrent = errors.New("版本已经是当前版本")

	// ErrSlaConfigNotFound 模块没有SLA配置
	ErrSlaConfigNotFound = errors.New("模块没有SLA配置")
)

// TransitionError 非法状态流转，附带当前状态和可执行的操作
type TransitionError struct {
	Err            error
	Status         WorkflowStatus
	Action         Action
	AllowedActions []Action
}

func (e *TransitionError) Error() string {
	allowed := make([]string, 0, len(e.AllowedActions))
	for _, a := range e.AllowedActions {
		allowed = append(allowed, string(a))
	}
	return fmt.Sprintf("%s: 状态 %s 不能执行 %s，可执行操作: [%s]",
		e.Err.Error(), e.Status, e.Action, strings.Join(allowed, ", "))
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// NewInvalidTransition 构造非法流转错误
func NewInvalidTransition(status WorkflowStatus, action Action) *TransitionError {
	return &TransitionError{
		Err:            ErrInvalidTransition,
		Status:         status,
		Action:         action,
		AllowedActions: AllowedActions(status),
	}
}

// errorCodes 错误码，用于接口响应和监控指标，按顺序匹配
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidTransition, "invalid_transition"},
	{ErrStaleTransition, "stale_transition"},
	{ErrRecordLocked, "record_locked"},
	{ErrDuplicateRequest, "duplicate_request"},
	{ErrConflict, "conflict"},
	{ErrSeparationOfDuty, "separation_of_duty_violation"},
	{ErrMakerOnly, "maker_only"},
	{ErrInsufficientRole, "insufficient_role"},
	{ErrDuplicateApprover, "duplicate_approver"},
	{ErrForbidden, "forbidden"},
	{ErrVersionNotFound, "version_not_found"},
	{ErrSlaConfigNotFound, "sla_config_not_found"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyCurrent, "already_current"},
	{ErrBadRequest, "bad_request"},
	{ErrUnauthorized, "unauthorized"},
}

// ErrorCode 错误对应的错误码，未知错误返回 internal_error
func ErrorCode(err error) string {
	for _, item := range errorCodes {
		if errors.Is(err, item.err) {
			return item.code
		}
	}
	return "internal_error"
}

// BadRequestf 包装参数错误，保留 ErrBadRequest 以便 errors.Is 判断
func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
