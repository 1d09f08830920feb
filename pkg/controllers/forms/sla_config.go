package forms

import (
	"github.com/S-FND/fnd1-sub000/pkg/core"
)

// SlaConfigForm 模块SLA配置更新表单，未传的字段保持不变
type SlaConfigForm struct {
	SlaHours             *int    `json:"sla_hours" example:"72"`
	RequiresDualApproval *bool   `json:"requires_dual_approval"`
	DualApprovalRule     *string `json:"dual_approval_rule" example:"materiality_flag"`
	EscalationEnabled    *bool   `json:"escalation_enabled"`
	EscalationHours      *int    `json:"escalation_hours" example:"24"`
	MinCheckerRole       *string `json:"min_checker_role" example:"checker"`
}

// Validate 验证表单，字段组合由 ApprovalSlaConfig.Validate 校验
func (form *SlaConfigForm) Validate() error {
	if form.DualApprovalRule != nil && len(*form.DualApprovalRule) > 1000 {
		return core.BadRequestf("dual_approval_rule不能超过1000个字符")
	}
	if form.MinCheckerRole != nil && !core.Role(*form.MinCheckerRole).Valid() {
		return core.BadRequestf("未知角色: %s", *form.MinCheckerRole)
	}
	return nil
}

// UpdateSlaConfig 把表单中的字段写入配置
func (form *SlaConfigForm) UpdateSlaConfig(cfg *core.ApprovalSlaConfig) {
	if form.SlaHours != nil {
		cfg.SlaHours = *form.SlaHours
	}
	if form.RequiresDualApproval != nil {
		cfg.RequiresDualApproval = *form.RequiresDualApproval
	}
	if form.DualApprovalRule != nil {
		cfg.DualApprovalRule = *form.DualApprovalRule
	}
	if form.EscalationEnabled != nil {
		cfg.EscalationEnabled = *form.EscalationEnabled
	}
	if form.EscalationHours != nil {
		cfg.EscalationHours = *form.EscalationHours
	}
	if form.MinCheckerRole != nil {
		cfg.MinCheckerRole = core.Role(*form.MinCheckerRole)
	}
}
