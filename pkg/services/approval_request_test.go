package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalRequestService_CreateMaterialGHGChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	setNow(t, now)

	request, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module:          core.ModuleGHGAccounting,
		RecordID:        "scope2-2025",
		RecordType:      "scope2",
		MakerID:         "maker-1",
		CurrentData:     json.RawMessage(`{"tco2e":1200}`),
		MaterialityFlag: true,
		ChangeSummary:   "restated grid factor",
		EvidenceURLs:    []string{"s3://evidence/grid-factor.pdf"},
		SubmitNow:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, core.PriorityHigh, request.Priority)
	assert.Equal(t, core.StatusPendingReview, request.Status)
	require.NotNil(t, request.SubmittedAt)
	require.NotNil(t, request.DueAt)
	assert.True(t, request.SubmittedAt.Equal(now))
	assert.True(t, request.DueAt.Equal(now.Add(48*time.Hour)))
	assert.True(t, request.RequiresDualApproval)
	assert.Equal(t, 1, request.VersionNumber)
	assert.Nil(t, request.PreviousData)

	// 暂存的版本不是当前版本
	versions, err := f.versions.GetHistory(ctx, core.ModuleGHGAccounting, "scope2-2025")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.False(t, versions[0].IsCurrent)
	assert.Equal(t, request.ID, *versions[0].ApprovalRequestID)
	assert.Equal(t, []string{"s3://evidence/grid-factor.pdf"}, versions[0].EvidenceRefs)

	// 历史：create + submit
	entries, err := f.history.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, core.ActionCreate, entries[0].Action)
	assert.Equal(t, core.StatusDraft, entries[0].NewStatus)
	assert.Equal(t, core.ActionSubmit, entries[1].Action)
	assert.Equal(t, core.StatusPendingReview, entries[1].NewStatus)
}

func TestApprovalRequestService_Priority(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		recordID    string
		priority    core.Priority
		materiality bool
		expected    core.Priority
	}{
		{"p-1", "", false, core.PriorityMedium},
		{"p-2", core.PriorityLow, false, core.PriorityLow},
		{"p-3", core.PriorityLow, true, core.PriorityHigh},
		{"p-4", core.PriorityCritical, true, core.PriorityCritical},
	}
	for _, c := range cases {
		request, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
			Module: core.ModuleESGMetrics, RecordID: c.recordID, RecordType: "metric", MakerID: "maker-1",
			CurrentData: json.RawMessage(`{}`), Priority: c.priority, MaterialityFlag: c.materiality,
		})
		require.NoError(t, err)
		assert.Equal(t, c.expected, request.Priority, c.recordID)
	}

	_, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module: core.ModuleESGMetrics, RecordID: "p-5", RecordType: "metric", MakerID: "maker-1",
		CurrentData: json.RawMessage(`{}`), Priority: core.Priority("urgent"),
	})
	assert.ErrorIs(t, err, core.ErrBadRequest)
}

func TestApprovalRequestService_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	inputs := []*core.CreateRequestInput{
		{Module: core.Module("finance"), RecordID: "x", RecordType: "metric", MakerID: "maker-1", CurrentData: json.RawMessage(`{}`)},
		{Module: core.ModuleESGMetrics, RecordID: "x", RecordType: "scope1", MakerID: "maker-1", CurrentData: json.RawMessage(`{}`)},
		{Module: core.ModuleESGMetrics, RecordID: "", RecordType: "metric", MakerID: "maker-1", CurrentData: json.RawMessage(`{}`)},
		{Module: core.ModuleESGMetrics, RecordID: "x", RecordType: "metric", MakerID: "maker-1", CurrentData: json.RawMessage(`{bad`)},
	}
	for i, input := range inputs {
		_, err := f.ledger.CreateRequest(ctx, input)
		assert.ErrorIs(t, err, core.ErrBadRequest, "case %d", i)
	}
}

func TestApprovalRequestService_DuplicateAndLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.submit(t, core.ModuleESGDD, "questionnaire", "q-1", `{"q1":"a"}`)

	_, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module: core.ModuleESGDD, RecordID: "q-1", RecordType: "questionnaire", MakerID: "maker-2",
		CurrentData: json.RawMessage(`{"q1":"b"}`),
	})
	assert.ErrorIs(t, err, core.ErrDuplicateRequest)

	// 有未完结审批单时不能暂存新版本
	_, err = f.versions.StageVersion(ctx, &core.StageVersionInput{
		Module: core.ModuleESGDD, RecordID: "q-1", RecordType: "questionnaire",
		Content: json.RawMessage(`{"q1":"c"}`), CreatedBy: "maker-2",
	})
	assert.ErrorIs(t, err, core.ErrRecordLocked)

	versions, err := f.versions.GetHistory(ctx, core.ModuleESGDD, "q-1")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestApprovalRequestService_ConcurrentVersionWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// 另一个写入方已经占用了下一个版本号
	_, err := f.versions.StageVersion(ctx, &core.StageVersionInput{
		Module: core.ModuleESGMetrics, RecordID: "energy-1", RecordType: "metric",
		Content: json.RawMessage(`{"kwh":10}`), CreatedBy: "maker-2",
	})
	require.NoError(t, err)

	tx := f.store.Transactor()
	versions := NewRecordVersionService(&laggingVersionStore{f.store.RecordVersions()}, f.store.Requests(), tx)
	ledger := NewApprovalRequestService(f.store.Requests(), f.store.History(), versions, f.configs, f.registry, f.rule, tx)

	_, err = ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module: core.ModuleESGMetrics, RecordID: "energy-1", RecordType: "metric", MakerID: "maker-1",
		CurrentData: json.RawMessage(`{"kwh":12}`), SubmitNow: true,
	})
	assert.ErrorIs(t, err, core.ErrDuplicateRequest)

	// 事务回滚，审批单没有写入
	_, err = f.store.Requests().FindOpenByRecord(ctx, core.ModuleESGMetrics, "energy-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	count, err := f.ledger.CountByMaker(ctx, "maker-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestApprovalRequestService_DraftThenSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	setNow(t, created)

	request, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module: core.ModuleESGCAP, RecordID: "cap-1", RecordType: "cap_item", MakerID: "maker-1",
		CurrentData: json.RawMessage(`{"status":"open"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusDraft, request.Status)
	assert.Nil(t, request.DueAt)

	// 草稿不在待审批列表中
	count, err := f.ledger.CountPending(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	submitted := created.Add(3 * time.Hour)
	setNow(t, submitted)
	result, err := f.do(request, core.ActionSubmit, "maker-1", core.RoleMaker)
	require.NoError(t, err)
	assert.True(t, result.Request.SubmittedAt.Equal(submitted))
	assert.True(t, result.Request.DueAt.Equal(submitted.Add(120*time.Hour)))

	count, err = f.ledger.CountPending(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestApprovalRequestService_DualApprovalRule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cfg, err := f.configs.Get(ctx, core.ModuleESGMetrics)
	require.NoError(t, err)
	cfg.DualApprovalRule = `materiality_flag && priority in ["high", "critical"]`
	_, err = f.configs.Update(ctx, cfg, &core.Actor{ID: "admin-1", Role: core.RoleAdmin})
	require.NoError(t, err)

	plain, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module: core.ModuleESGMetrics, RecordID: "r-1", RecordType: "kpi", MakerID: "maker-1",
		CurrentData: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.False(t, plain.RequiresDualApproval)

	material, err := f.ledger.CreateRequest(ctx, &core.CreateRequestInput{
		Module: core.ModuleESGMetrics, RecordID: "r-2", RecordType: "kpi", MakerID: "maker-1",
		CurrentData: json.RawMessage(`{}`), MaterialityFlag: true,
	})
	require.NoError(t, err)
	assert.True(t, material.RequiresDualApproval)
}

func TestApprovalRequestService_ListPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	setNow(t, now.Add(-100*time.Hour))

	overdue := f.submit(t, core.ModuleESGMetrics, "metric", "l-1", `{}`)
	setNow(t, now)
	assigned := f.submit(t, core.ModuleESGMetrics, "metric", "l-2", `{}`)
	f.submit(t, core.ModuleESGCAP, "cap_item", "l-3", `{}`)
	_, err := f.do(assigned, core.ActionAssign, "checker-9", core.RoleChecker)
	require.NoError(t, err)

	all, err := f.ledger.ListPending(ctx, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// 默认按截止时间升序
	assert.Equal(t, overdue.ID, all[0].ID)

	mine, err := f.ledger.ListPending(ctx, &PendingFilter{CheckerID: "checker-9"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, assigned.ID, mine[0].ID)

	byModule, err := f.ledger.CountPending(ctx, &PendingFilter{Module: core.ModuleESGCAP})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byModule)

	inReview, err := f.ledger.CountPending(ctx, &PendingFilter{Status: core.StatusInReview})
	require.NoError(t, err)
	assert.EqualValues(t, 1, inReview)

	late, err := f.ledger.ListPending(ctx, &PendingFilter{Overdue: true}, 0, 10)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, overdue.ID, late[0].ID)

	made, err := f.ledger.CountByMaker(ctx, "maker-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, made)

	byMaker, err := f.ledger.ListByMaker(ctx, "maker-1", 0, 1)
	require.NoError(t, err)
	assert.Len(t, byMaker, 1)
}

func TestApprovalRequestService_ExtendSLA(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	request := f.submit(t, core.ModuleESGMetrics, "metric", "e-1", `{}`)
	senior := &core.Actor{ID: "senior-1", Role: core.RoleSeniorChecker}

	_, err := f.ledger.ExtendSLA(ctx, request.ID, 24, &core.Actor{ID: "checker-1", Role: core.RoleChecker}, "")
	assert.ErrorIs(t, err, core.ErrInsufficientRole)

	_, err = f.ledger.ExtendSLA(ctx, request.ID, 0, senior, "")
	assert.ErrorIs(t, err, core.ErrBadRequest)

	extended, err := f.ledger.ExtendSLA(ctx, request.ID, 24, senior, "waiting for auditor")
	require.NoError(t, err)
	assert.True(t, extended.DueAt.Equal(request.DueAt.Add(24*time.Hour)))
	assert.Equal(t, core.StatusPendingReview, extended.Status)

	entries, err := f.history.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, core.ActionExtendSLA, last.Action)
	assert.Equal(t, core.StatusPendingReview, last.PreviousStatus)
	assert.Equal(t, core.StatusPendingReview, last.NewStatus)
	assert.Equal(t, "waiting for auditor", last.Comment)

	status, err := f.history.Verify(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPendingReview, status)

	// 终态不能延期
	_, err = f.do(request, core.ActionAssign, "checker-1", core.RoleChecker)
	require.NoError(t, err)
	_, err = f.do(request, core.ActionReject, "checker-1", core.RoleChecker)
	require.NoError(t, err)
	_, err = f.ledger.ExtendSLA(ctx, request.ID, 24, senior, "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestApprovalRequestService_Annotate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	request := f.submit(t, core.ModuleESGMetrics, "metric", "a-1", `{}`)
	maker := &core.Actor{ID: "maker-1", Role: core.RoleMaker}

	// 未完结不能补充说明
	_, err := f.ledger.Annotate(ctx, request.ID, "done", maker)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	approveSingle(t, f, request, "checker-1")

	annotated, err := f.ledger.Annotate(ctx, request.ID, "figures reconciled with FY report", maker)
	require.NoError(t, err)
	assert.Equal(t, "figures reconciled with FY report", annotated.CompletionNotes)
	assert.Equal(t, core.StatusApproved, annotated.Status)

	_, err = f.ledger.Annotate(ctx, request.ID, "x", &core.Actor{ID: "viewer-1", Role: core.RoleViewer})
	assert.ErrorIs(t, err, core.ErrInsufficientRole)

	status, err := f.history.Verify(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusApproved, status)
}
