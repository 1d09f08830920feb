package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/S-FND/fnd1-sub000/pkg/utils/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseController Web控制器基础结构体
// 提供统一的HTTP响应、错误映射、分页解析和当前操作人获取
// 所有具体的控制器都嵌入此结构体
type BaseController struct {
}

// errorStatus 领域错误到HTTP状态码的映射，按顺序匹配
var errorStatus = []struct {
	err    error
	status int
}{
	{core.ErrInvalidTransition, http.StatusConflict},
	{core.ErrStaleTransition, http.StatusConflict},
	{core.ErrRecordLocked, http.StatusConflict},
	{core.ErrDuplicateRequest, http.StatusConflict},
	{core.ErrConflict, http.StatusConflict},
	{core.ErrAlreadyCurrent, http.StatusConflict},
	{core.ErrSeparationOfDuty, http.StatusForbidden},
	{core.ErrMakerOnly, http.StatusForbidden},
	{core.ErrInsufficientRole, http.StatusForbidden},
	{core.ErrDuplicateApprover, http.StatusForbidden},
	{core.ErrForbidden, http.StatusForbidden},
	{core.ErrNotFound, http.StatusNotFound},
	{core.ErrVersionNotFound, http.StatusNotFound},
	{core.ErrSlaConfigNotFound, http.StatusNotFound},
	{core.ErrBadRequest, http.StatusBadRequest},
	{core.ErrUnauthorized, http.StatusUnauthorized},
}

// HandleOK 处理成功响应（200 OK）
func (controller *BaseController) HandleOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, types.Response{
		Code:    0,
		Data:    data,
		Message: "ok",
	})
}

// HandleCreated 处理创建成功响应（201 Created）
func (controller *BaseController) HandleCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, types.Response{
		Code:    0,
		Data:    data,
		Message: "ok",
	})
}

// HandleError 处理错误响应，code为默认状态码
// 领域错误会映射到对应的状态码，非法流转会附带当前可执行的操作
func (controller *BaseController) HandleError(c *gin.Context, err error, code int) {
	status, errCode := code, core.ErrorCode(err)
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			status = m.status
			break
		}
	}
	// 参数绑定等未包装的错误
	if errCode == "internal_error" && status == http.StatusBadRequest {
		errCode = "bad_request"
	}

	r := types.Response{
		Code:    status,
		Error:   errCode,
		Message: err.Error(),
	}

	var te *core.TransitionError
	if errors.As(err, &te) {
		r.Data = gin.H{
			"status":          te.Status,
			"action":          te.Action,
			"allowed_actions": te.AllowedActions,
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("请求处理失败", zap.String("path", c.Request.URL.Path), zap.Error(err))
		r.Message = core.ErrInternalServerError.Error()
	}

	c.JSON(status, r)
}

// HandleServiceError 处理service层返回的错误，未知错误按500处理
func (controller *BaseController) HandleServiceError(c *gin.Context, err error) {
	controller.HandleError(c, err, http.StatusInternalServerError)
}

// HandleError400 处理400错误响应（请求参数错误）
func (controller *BaseController) HandleError400(c *gin.Context, err error) {
	controller.HandleError(c, err, http.StatusBadRequest)
}

// Handle401 处理401错误响应（未认证）
func (controller *BaseController) Handle401(c *gin.Context, err error) {
	c.JSON(http.StatusUnauthorized, types.Response{
		Code:    http.StatusUnauthorized,
		Error:   "unauthorized",
		Message: err.Error(),
	})
}

// ParsePagination 解析分页参数
func (controller *BaseController) ParsePagination(c *gin.Context) *types.Pagination {
	page, err := strconv.Atoi(c.DefaultQuery(pageConfig.PageQueryParam, "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if pageConfig.MaxPage > 0 && page > pageConfig.MaxPage {
		page = pageConfig.MaxPage
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery(pageConfig.PageSizeQueryParam, "10"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	if pageConfig.MaxPageSize > 0 && pageSize > pageConfig.MaxPageSize {
		pageSize = pageConfig.MaxPageSize
	}

	return &types.Pagination{
		Page:     page,
		PageSize: pageSize,
	}
}

// CurrentActor 获取认证中间件写入的当前操作人
func (controller *BaseController) CurrentActor(c *gin.Context) (*core.Actor, error) {
	userID := c.GetString(core.ContextKeyUserID)
	if userID == "" {
		return nil, core.ErrUnauthorized
	}
	return &core.Actor{
		ID:        userID,
		Role:      core.Role(c.GetString(core.ContextKeyUserRole)),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}, nil
}
