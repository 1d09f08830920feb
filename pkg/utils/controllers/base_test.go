package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, err error, code int) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	controller := &BaseController{}
	controller.HandleError(c, err, code)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		err    error
		code   int
		status int
		errStr string
	}{
		{core.ErrStaleTransition, http.StatusInternalServerError, http.StatusConflict, "stale_transition"},
		{fmt.Errorf("包装: %w", core.ErrSeparationOfDuty), http.StatusInternalServerError, http.StatusForbidden, "separation_of_duty_violation"},
		{core.ErrVersionNotFound, http.StatusInternalServerError, http.StatusNotFound, "version_not_found"},
		{core.BadRequestf("x"), http.StatusInternalServerError, http.StatusBadRequest, "bad_request"},
		{core.ErrUnauthorized, http.StatusInternalServerError, http.StatusUnauthorized, "unauthorized"},
		{errors.New("json解析失败"), http.StatusBadRequest, http.StatusBadRequest, "bad_request"},
		{errors.New("连接断开"), http.StatusInternalServerError, http.StatusInternalServerError, "internal_error"},
	}
	for _, c := range cases {
		status, body := handle(t, c.err, c.code)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.errStr, body["error"], c.err.Error())
	}

	// 内部错误不暴露细节
	_, body := handle(t, errors.New("连接断开"), http.StatusInternalServerError)
	assert.Equal(t, core.ErrInternalServerError.Error(), body["message"])
}

func TestHandleError_InvalidTransition(t *testing.T) {
	err := core.NewInvalidTransition(core.StatusApproved, core.ActionReject)
	status, body := handle(t, err, http.StatusInternalServerError)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", body["error"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, []interface{}{"publish"}, data["allowed_actions"])
}
