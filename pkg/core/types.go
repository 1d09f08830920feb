package core

// Module 接入审批引擎的ESG子模块
type Module string

const (
	ModuleESGMetrics    Module = "esg_metrics"
	ModuleESGCAP        Module = "esg_cap"
	ModuleGHGAccounting Module = "ghg_accounting"
	ModuleBRSRReport    Module = "brsr_report"
	ModuleESGDD         Module = "esg_dd"
)

// Modules 全部模块
var Modules = []Module{
	ModuleESGMetrics,
	ModuleESGCAP,
	ModuleGHGAccounting,
	ModuleBRSRReport,
	ModuleESGDD,
}

// versionTables 各模块的版本表
var versionTables = map[Module]string{
	ModuleESGMetrics:    "esg_metric_versions",
	ModuleESGCAP:        "esg_cap_versions",
	ModuleGHGAccounting: "ghg_accounting_versions",
	ModuleBRSRReport:    "brsr_report_versions",
	ModuleESGDD:         "esg_dd_versions",
}

// Valid 是否为已知模块
func (m Module) Valid() bool {
	_, ok := versionTables[m]
	return ok
}

// VersionTable 模块对应的版本表名，未知模块返回空字符串
func VersionTable(m Module) string {
	return versionTables[m]
}

// WorkflowStatus 审批单状态
type WorkflowStatus string

const (
	StatusDraft             WorkflowStatus = "draft"
	StatusPendingReview     WorkflowStatus = "pending_review"
	StatusInReview          WorkflowStatus = "in_review"
	StatusApproved          WorkflowStatus = "approved"
	StatusPublished         WorkflowStatus = "published"
	StatusRejected          WorkflowStatus = "rejected"
	StatusRevisionRequested WorkflowStatus = "revision_requested"
)

// TerminalStatuses 终态
var TerminalStatuses = []WorkflowStatus{StatusApproved, StatusPublished, StatusRejected}

// OpenStatuses 未完结状态
var OpenStatuses = []WorkflowStatus{StatusDraft, StatusPendingReview, StatusInReview, StatusRevisionRequested}

// IsTerminal 是否为终态
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Valid 是否为已知状态
func (s WorkflowStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusInReview, StatusApproved,
		StatusPublished, StatusRejected, StatusRevisionRequested:
		return true
	}
	return false
}

// Priority 优先级
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRanks = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

var priorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Rank 优先级等级，未知优先级为0
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// Valid 是否为已知优先级
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Raise 提升一级，critical保持不变
func (p Priority) Raise() Priority {
	rank := p.Rank()
	if rank == 0 {
		return PriorityMedium
	}
	if rank >= len(priorityOrder) {
		return PriorityCritical
	}
	return priorityOrder[rank]
}

// MaxPriority 取较高的优先级
func MaxPriority(a, b Priority) Priority {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Role 操作人角色，按权限从低到高排列
type Role string

const (
	RoleViewer        Role = "viewer"
	RoleMaker         Role = "maker"
	RoleChecker       Role = "checker"
	RoleSeniorChecker Role = "senior_checker"
	RolePublisher     Role = "publisher"
	RoleAdmin         Role = "admin"
	RoleSystem        Role = "system"
)

var roleRanks = map[Role]int{
	RoleViewer:        1,
	RoleMaker:         2,
	RoleChecker:       3,
	RoleSeniorChecker: 4,
	RolePublisher:     5,
	RoleAdmin:         6,
	RoleSystem:        7,
}

// Rank 角色等级，未知角色为0
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast 角色等级是否不低于min
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// CanPublish 是否可以发布
func (r Role) CanPublish() bool {
	return r == RolePublisher || r == RoleAdmin || r == RoleSystem
}

// Action 审批操作，同时也是审批历史中的动作名
type Action string

const (
	ActionCreate          Action = "create"
	ActionSubmit          Action = "submit"
	ActionAssign          Action = "assign"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionResubmit        Action = "resubmit"
	ActionPublish         Action = "publish"

	// 不改变状态的操作
	ActionExtendSLA Action = "extend_sla"
	ActionEscalate  Action = "escalate"
	ActionAnnotate  Action = "annotate"
)
