package services

import (
	"context"
	"testing"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	entries := []*core.ApprovalHistory{
		{Sequence: 1, PreviousStatus: "", NewStatus: core.StatusDraft},
		{Sequence: 2, PreviousStatus: core.StatusDraft, NewStatus: core.StatusPendingReview},
		{Sequence: 3, PreviousStatus: core.StatusPendingReview, NewStatus: core.StatusInReview},
	}
	status, err := Replay(entries)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInReview, status)

	// 链路断裂
	entries[2].PreviousStatus = core.StatusDraft
	status, err = Replay(entries)
	assert.Error(t, err)
	assert.Equal(t, core.StatusPendingReview, status)

	status, err = Replay(nil)
	require.NoError(t, err)
	assert.Equal(t, core.WorkflowStatus(""), status)
}

func TestApprovalHistoryService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	request := f.submit(t, core.ModuleESGDD, "dd_response", "h-1", `{"answer":"yes"}`)
	_, err := f.do(request, core.ActionAssign, "checker-1", core.RoleChecker)
	require.NoError(t, err)
	_, err = f.do(request, core.ActionRequestRevision, "checker-1", core.RoleChecker)
	require.NoError(t, err)

	entries, err := f.history.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Sequence)
	}
	assert.Equal(t, core.ActionCreate, entries[0].Action)
	assert.Equal(t, core.ActionSubmit, entries[1].Action)
	assert.Equal(t, "maker-1", entries[1].ActorID)
	assert.Equal(t, core.ActionRequestRevision, entries[3].Action)

	status, err := f.history.Verify(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRevisionRequested, status)

	_, err = f.history.ListByRequest(ctx, uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
}
