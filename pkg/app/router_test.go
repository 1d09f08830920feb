package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/middleware"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiResponse 统一响应，data延迟解析
type apiResponse struct {
	Code    int             `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := buildComponents(newMemoryStorage(), services.LogEscalationNotifier{})
	require.NoError(t, c.slaConfigs.EnsureDefaults(context.Background(), ""))

	engine := gin.New()
	engine.Use(middleware.CORSMiddleware())
	initRouter(engine, c, middleware.IdentityMiddlewareWithConfig(&middleware.IdentityConfig{
		Mode:      middleware.AuthModeHeader,
		SkipPaths: middleware.PublicPaths,
	}))
	return &testServer{t: t, engine: engine}
}

// call 以指定身份发起请求，userID为空时不带身份
func (s *testServer) call(method, path, userID string, role core.Role, body interface{}) (int, *apiResponse) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
		req.Header.Set(middleware.HeaderUserRole, string(role))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, &resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (s *testServer) transition(requestID, action, userID string, role core.Role) (int, *apiResponse) {
	return s.call(http.MethodPost, "/api/v1/approvals/transition/", userID, role, gin.H{
		"request_id": requestID,
		"action":     action,
	})
}

func TestRouter_MakerCheckerFlow(t *testing.T) {
	s := newTestServer(t)

	// 1. maker发起温室气体核算的重要性变更
	status, resp := s.call(http.MethodPost, "/api/v1/approvals/submit-change/", "maker-1", core.RoleMaker, gin.H{
		"module":           "ghg_accounting",
		"record_id":        "scope3-2025",
		"record_type":      "scope3",
		"current_data":     gin.H{"tco2e": 1520.5},
		"materiality_flag": true,
		"change_summary":   "更新运输排放因子",
	})
	require.Equal(t, http.StatusCreated, status, resp.Message)
	request := decode[core.ApprovalRequest](t, resp.Data)
	assert.Equal(t, core.StatusPendingReview, request.Status)
	assert.Equal(t, core.PriorityHigh, request.Priority)
	assert.True(t, request.RequiresDualApproval)
	id := request.ID.String()

	// 还没有审批通过的版本
	status, _ = s.call(http.MethodGet, "/api/v1/records/ghg_accounting/scope3-2025/current/", "viewer-1", core.RoleViewer, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// 2. 同一记录不能再发起
	status, resp = s.call(http.MethodPost, "/api/v1/approvals/submit-change/", "maker-2", core.RoleMaker, gin.H{
		"module":       "ghg_accounting",
		"record_id":    "scope3-2025",
		"record_type":  "scope3",
		"current_data": gin.H{"tco2e": 1},
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_request", resp.Error)

	// 3. 审核人认领，发起人不能审批自己的变更
	status, _ = s.transition(id, "assign", "checker-1", core.RoleChecker)
	require.Equal(t, http.StatusOK, status)

	status, resp = s.transition(id, "approve", "maker-1", core.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "separation_of_duty_violation", resp.Error)

	// 4. 双人审批
	status, resp = s.transition(id, "approve", "checker-1", core.RoleChecker)
	require.Equal(t, http.StatusOK, status)
	result := decode[services.TransitionResult](t, resp.Data)
	assert.True(t, result.DualApprovalPending)
	assert.Equal(t, core.StatusInReview, result.Request.Status)

	status, resp = s.transition(id, "approve", "checker-1", core.RoleChecker)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "duplicate_approver", resp.Error)

	status, resp = s.transition(id, "approve", "checker-2", core.RoleSeniorChecker)
	require.Equal(t, http.StatusOK, status)
	result = decode[services.TransitionResult](t, resp.Data)
	assert.Equal(t, core.StatusApproved, result.Request.Status)

	// 5. 当前版本已切换
	status, resp = s.call(http.MethodGet, "/api/v1/records/ghg_accounting/scope3-2025/current/", "viewer-1", core.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	version := decode[core.RecordVersion](t, resp.Data)
	assert.Equal(t, 1, version.VersionNumber)
	assert.True(t, version.IsCurrent)

	// 6. 非法流转返回当前可执行的操作
	status, resp = s.transition(id, "reject", "checker-2", core.RoleChecker)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", resp.Error)
	detail := decode[map[string]interface{}](t, resp.Data)
	assert.Equal(t, []interface{}{"publish"}, detail["allowed_actions"])

	// 7. 历史完整
	status, resp = s.call(http.MethodGet, "/api/v1/approvals/"+id+"/history/", "viewer-1", core.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]core.ApprovalHistory](t, resp.Data)
	replayed, err := services.Replay(toPointers(entries))
	require.NoError(t, err)
	assert.Equal(t, core.StatusApproved, replayed)

	// 8. 我发起的
	status, resp = s.call(http.MethodGet, "/api/v1/approvals/my/", "maker-1", core.RoleMaker, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[map[string]interface{}](t, resp.Data)
	assert.EqualValues(t, 1, list["count"])
}

func toPointers(entries []core.ApprovalHistory) []*core.ApprovalHistory {
	result := make([]*core.ApprovalHistory, 0, len(entries))
	for i := range entries {
		result = append(result, &entries[i])
	}
	return result
}

func TestRouter_PendingAndValidation(t *testing.T) {
	s := newTestServer(t)

	for _, recordID := range []string{"m-1", "m-2"} {
		status, resp := s.call(http.MethodPost, "/api/v1/approvals/submit-change/", "maker-1", core.RoleMaker, gin.H{
			"module":       "esg_metrics",
			"record_id":    recordID,
			"record_type":  "metric",
			"current_data": gin.H{"value": 10},
		})
		require.Equal(t, http.StatusCreated, status, resp.Message)
	}

	status, resp := s.call(http.MethodGet, "/api/v1/approvals/pending/?module=esg_metrics&page_size=1", "checker-1", core.RoleChecker, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[map[string]interface{}](t, resp.Data)
	assert.EqualValues(t, 2, list["count"])
	assert.Len(t, list["results"], 1)

	status, resp = s.call(http.MethodGet, "/api/v1/approvals/pending/?module=finance", "checker-1", core.RoleChecker, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", resp.Error)

	// 没有身份
	status, resp = s.call(http.MethodGet, "/api/v1/approvals/pending/", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", resp.Error)

	// 表单校验
	status, _ = s.call(http.MethodPost, "/api/v1/approvals/submit-change/", "maker-1", core.RoleMaker, gin.H{
		"module":    "esg_metrics",
		"record_id": "m-3",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = s.transition("not-a-uuid", "approve", "checker-1", core.RoleChecker)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = s.call(http.MethodGet, "/api/v1/approvals/6f1c1f7e-8a57-4d7e-9d0e-2f0b8f6c1a11/", "checker-1", core.RoleChecker, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", resp.Error)
}

func TestRouter_SlaConfigs(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.call(http.MethodGet, "/api/v1/sla-configs/", "viewer-1", core.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]core.ApprovalSlaConfig](t, resp.Data), len(core.Modules))

	body := gin.H{"sla_hours": 24, "dual_approval_rule": "materiality_flag"}
	status, resp = s.call(http.MethodPut, "/api/v1/sla-configs/esg_cap/", "checker-1", core.RoleSeniorChecker, body)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_role", resp.Error)

	status, resp = s.call(http.MethodPut, "/api/v1/sla-configs/esg_cap/", "admin-1", core.RoleAdmin, body)
	require.Equal(t, http.StatusOK, status, resp.Message)
	cfg := decode[core.ApprovalSlaConfig](t, resp.Data)
	assert.Equal(t, 24, cfg.SlaHours)
	assert.Equal(t, "materiality_flag", cfg.DualApprovalRule)
	assert.True(t, cfg.EscalationEnabled)

	status, resp = s.call(http.MethodPut, "/api/v1/sla-configs/esg_cap/", "admin-1", core.RoleAdmin, gin.H{"dual_approval_rule": "priority =="})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = s.call(http.MethodGet, "/api/v1/sla-configs/finance/", "viewer-1", core.RoleViewer, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "sla_config_not_found", resp.Error)

	status, resp = s.call(http.MethodGet, "/api/v1/sla/overdue/", "viewer-1", core.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, decode[map[string]interface{}](t, resp.Data)["count"])
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.call(http.MethodGet, "/api/v1/health/", "", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, resp.Data)["status"])
}
