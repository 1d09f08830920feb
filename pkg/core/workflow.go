package core

import "fmt"

// ActorConstraint 流转对操作人的约束
type ActorConstraint int

const (
	// ActorMaker 只能由发起人操作
	ActorMaker ActorConstraint = iota + 1
	// ActorChecker 审核人，角色不低于模块的 min_checker_role，且不能是发起人
	ActorChecker
	// ActorPublisher 发布人：publisher / admin / system
	ActorPublisher
)

// TransitionRule 一条合法的状态流转
type TransitionRule struct {
	From   WorkflowStatus
	Action Action
	To     WorkflowStatus
	Actor  ActorConstraint
}

// transitionRules 状态机
// 双人审批的第一次approve停留在in_review，由WorkflowEngine处理
var transitionRules = []TransitionRule{
	{From: StatusDraft, Action: ActionSubmit, To: StatusPendingReview, Actor: ActorMaker},
	{From: StatusPendingReview, Action: ActionAssign, To: StatusInReview, Actor: ActorChecker},
	{From: StatusInReview, Action: ActionApprove, To: StatusApproved, Actor: ActorChecker},
	{From: StatusInReview, Action: ActionReject, To: StatusRejected, Actor: ActorChecker},
	{From: StatusInReview, Action: ActionRequestRevision, To: StatusRevisionRequested, Actor: ActorChecker},
	{From: StatusRevisionRequested, Action: ActionResubmit, To: StatusPendingReview, Actor: ActorMaker},
	{From: StatusApproved, Action: ActionPublish, To: StatusPublished, Actor: ActorPublisher},
}

// LookupTransition 查找流转规则
func LookupTransition(from WorkflowStatus, action Action) (TransitionRule, bool) {
	for _, rule := range transitionRules {
		if rule.From == from && rule.Action == action {
			return rule, true
		}
	}
	return TransitionRule{}, false
}

// AllowedActions 某状态下可执行的流转操作
func AllowedActions(from WorkflowStatus) []Action {
	actions := []Action{}
	for _, rule := range transitionRules {
		if rule.From == from {
			actions = append(actions, rule.Action)
		}
	}
	return actions
}

// IsTransitionAction 是否为会触发状态机的操作
func IsTransitionAction(action Action) bool {
	for _, rule := range transitionRules {
		if rule.Action == action {
			return true
		}
	}
	return false
}

// ReplayStatus 按顺序回放审批历史，得到最终状态
// 每条历史的 previous_status 必须等于回放到该条时的状态，否则历史链断裂
func ReplayStatus(entries []*ApprovalHistory) (WorkflowStatus, error) {
	var current WorkflowStatus
	for i, entry := range entries {
		if entry.PreviousStatus != current {
			return current, fmt.Errorf("审批历史第%d条(sequence=%d)断裂: 期望前置状态 %q, 实际 %q",
				i+1, entry.Sequence, current, entry.PreviousStatus)
		}
		current = entry.NewStatus
	}
	return current, nil
}
