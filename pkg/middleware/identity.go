// Package middleware HTTP中间件
//
// 身份解析、跨域、监控指标
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/S-FND/fnd1-sub000/pkg/utils/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// 认证模式
const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"
)

// 网关透传身份使用的请求头
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// PublicPaths 不需要身份的路径
var PublicPaths = []string{
	"/health",
	"/metrics",
	"/api/v1/health/",
}

// IdentityConfig 身份解析配置
type IdentityConfig struct {
	Mode        string
	JWTSecret   string
	JWTIssuer   string
	RoleClaim   string
	DefaultRole core.Role
	SkipPaths   []string
}

// DefaultIdentityConfig 从全局认证配置构建
func DefaultIdentityConfig() *IdentityConfig {
	return &IdentityConfig{
		Mode:        config.Auth.Mode,
		JWTSecret:   config.Auth.JWTSecret,
		JWTIssuer:   config.Auth.JWTIssuer,
		RoleClaim:   config.Auth.RoleClaim,
		DefaultRole: core.Role(config.Auth.DefaultRole),
		SkipPaths:   PublicPaths,
	}
}

// identity 解析出的身份
type identity struct {
	userID string
	role   core.Role
}

// IdentityMiddleware 使用全局认证配置的身份中间件
func IdentityMiddleware() gin.HandlerFunc {
	return IdentityMiddlewareWithConfig(DefaultIdentityConfig())
}

// IdentityMiddlewareWithConfig 解析请求中的身份并写入Gin Context
//
// 会话由外部系统签发，这里只负责识别用户和角色：
//   - jwt: Authorization: Bearer <token>，HS256签名，sub为用户ID，角色取 RoleClaim
//   - header: 由网关透传 X-User-ID / X-User-Role
//
// 解析失败时返回401，是否有权限执行某个操作由service层判断
func IdentityMiddlewareWithConfig(cfg *IdentityConfig) gin.HandlerFunc {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = core.RoleViewer
	}

	return func(c *gin.Context) {
		if shouldSkip(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		var (
			id  *identity
			err error
		)
		switch cfg.Mode {
		case AuthModeJWT:
			id, err = parseBearer(c.GetHeader("Authorization"), cfg)
		default:
			id, err = parseHeader(c, cfg)
		}
		if err != nil {
			logger.Warn("身份解析失败",
				zap.String("mode", cfg.Mode),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.Response{
				Code:    http.StatusUnauthorized,
				Error:   "unauthorized",
				Message: err.Error(),
			})
			return
		}

		c.Set(core.ContextKeyUserID, id.userID)
		c.Set(core.ContextKeyUserRole, string(id.role))
		c.Set(core.ContextKeyAuthType, cfg.Mode)
		c.Set(core.ContextKeyIsAuthenticated, true)
		c.Next()
	}
}

// shouldSkip 前缀匹配
func shouldSkip(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// parseHeader 网关透传模式
func parseHeader(c *gin.Context, cfg *IdentityConfig) (*identity, error) {
	userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if userID == "" {
		return nil, fmt.Errorf("缺少%s请求头", HeaderUserID)
	}
	role, err := parseRole(c.GetHeader(HeaderUserRole), cfg.DefaultRole)
	if err != nil {
		return nil, err
	}
	return &identity{userID: userID, role: role}, nil
}

// parseBearer 校验HS256签名的Bearer Token
func parseBearer(header string, cfg *IdentityConfig) (*identity, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("未配置JWT密钥")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, errors.New("缺少Bearer Token")
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		options = append(options, jwt.WithIssuer(cfg.JWTIssuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("token无效: %w", err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("token缺少sub")
	}

	roleValue, _ := claims[cfg.RoleClaim].(string)
	role, err := parseRole(roleValue, cfg.DefaultRole)
	if err != nil {
		return nil, err
	}
	return &identity{userID: subject, role: role}, nil
}

// parseRole 为空时使用默认角色，未知角色视为认证失败
func parseRole(value string, defaultRole core.Role) (core.Role, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return defaultRole, nil
	}
	role := core.Role(value)
	// system只能由服务内部使用
	if !role.Valid() || role == core.RoleSystem {
		return "", fmt.Errorf("未知角色: %s", value)
	}
	return role, nil
}
