package forms

import (
	"encoding/json"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
)

// SubmitChangeForm 发起变更审批表单
type SubmitChangeForm struct {
	Module          string          `json:"module" binding:"required" example:"ghg_accounting"`
	RecordID        string          `json:"record_id" binding:"required" example:"scope3-2025"`
	RecordType      string          `json:"record_type" binding:"required" example:"scope3"`
	PreviousData    json.RawMessage `json:"previous_data" swaggertype:"object"` // 为空时取当前版本
	CurrentData     json.RawMessage `json:"current_data" binding:"required" swaggertype:"object"`
	MaterialityFlag bool            `json:"materiality_flag"`
	Priority        string          `json:"priority" example:"medium"`
	ChangeSummary   string          `json:"change_summary"`
	EvidenceURLs    []string        `json:"evidence_urls"`
	Draft           bool            `json:"draft"` // true时只保存草稿，不进入审批
}

// Validate 验证表单
func (form *SubmitChangeForm) Validate() error {
	if !core.Module(form.Module).Valid() {
		return core.BadRequestf("未知模块: %s", form.Module)
	}
	if form.Priority != "" && !core.Priority(form.Priority).Valid() {
		return core.BadRequestf("未知优先级: %s", form.Priority)
	}
	if len(form.ChangeSummary) > 2000 {
		return core.BadRequestf("change_summary不能超过2000个字符")
	}
	if len(form.EvidenceURLs) > 50 {
		return core.BadRequestf("evidence_urls不能超过50个")
	}
	return nil
}

// ToInput 转换为发起审批的参数，操作人由调用方填充
func (form *SubmitChangeForm) ToInput(actor *core.Actor) *core.CreateRequestInput {
	return &core.CreateRequestInput{
		Module:          core.Module(form.Module),
		RecordID:        form.RecordID,
		RecordType:      form.RecordType,
		MakerID:         actor.ID,
		MakerRole:       actor.Role,
		PreviousData:    form.PreviousData,
		CurrentData:     form.CurrentData,
		MaterialityFlag: form.MaterialityFlag,
		Priority:        core.Priority(form.Priority),
		ChangeSummary:   form.ChangeSummary,
		EvidenceURLs:    form.EvidenceURLs,
		SubmitNow:       !form.Draft,
		IPAddress:       actor.IPAddress,
		UserAgent:       actor.UserAgent,
	}
}

// TransitionForm 状态流转表单
type TransitionForm struct {
	RequestID        uuid.UUID       `json:"request_id" binding:"required"`
	Action           string          `json:"action" binding:"required" example:"approve"`
	Comment          string          `json:"comment"`
	AssigneeID       string          `json:"assignee_id"`                       // assign时指定审核人，为空时分配给自己
	ExpectedRevision *int            `json:"expected_revision"`                 // 读取时的revision，用于乐观锁
	CurrentData      json.RawMessage `json:"current_data" swaggertype:"object"` // resubmit时的新内容
	ChangeSummary    string          `json:"change_summary"`
}

// Validate 验证表单
func (form *TransitionForm) Validate() error {
	if !core.IsTransitionAction(core.Action(form.Action)) {
		return core.BadRequestf("未知操作: %s", form.Action)
	}
	if len(form.Comment) > 4000 {
		return core.BadRequestf("comment不能超过4000个字符")
	}
	if len(form.CurrentData) > 0 && core.Action(form.Action) != core.ActionResubmit {
		return core.BadRequestf("只有resubmit可以提交新内容")
	}
	return nil
}

// ExtendSLAForm 延长SLA表单
type ExtendSLAForm struct {
	Hours  int    `json:"hours" binding:"required" example:"24"`
	Reason string `json:"reason"`
}

// Validate 验证表单
func (form *ExtendSLAForm) Validate() error {
	if form.Hours <= 0 || form.Hours > 24*30 {
		return core.BadRequestf("hours必须在1到720之间")
	}
	return nil
}

// AnnotateForm 补充备注表单
type AnnotateForm struct {
	Notes string `json:"notes" binding:"required"`
}

// Validate 验证表单
func (form *AnnotateForm) Validate() error {
	if len(form.Notes) > 4000 {
		return core.BadRequestf("notes不能超过4000个字符")
	}
	return nil
}
