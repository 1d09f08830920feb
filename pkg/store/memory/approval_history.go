package memory

import (
	"context"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
)

type approvalHistoryStore struct {
	s *Store
}

// Append 追加历史，sequence按审批单递增
func (h *approvalHistoryStore) Append(ctx context.Context, entry *core.ApprovalHistory) (*core.ApprovalHistory, error) {
	err := h.s.write(ctx, func() error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		entry.Sequence = len(h.s.history[entry.ApprovalRequestID]) + 1

		stored := *entry
		if entry.DataSnapshot != nil {
			stored.DataSnapshot = append([]byte{}, entry.DataSnapshot...)
		}
		h.s.history[entry.ApprovalRequestID] = append(h.s.history[entry.ApprovalRequestID], &stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (h *approvalHistoryStore) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*core.ApprovalHistory, error) {
	entries := []*core.ApprovalHistory{}
	h.s.read(func() {
		for _, entry := range h.s.history[requestID] {
			c := *entry
			entries = append(entries, &c)
		}
	})
	return entries, nil
}
