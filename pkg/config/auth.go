package config

// auth 身份认证配置
// 会话由外部系统签发（如Supabase），本服务只负责解析身份
type auth struct {
	Mode        string // 认证模式：jwt（Bearer Token）、header（网关透传 X-User-ID / X-User-Role）
	JWTSecret   string // HS256签名密钥
	JWTIssuer   string // 期望的签发者，为空时不校验
	RoleClaim   string // 角色所在的claim名称
	DefaultRole string // token中没有角色时使用的默认角色
}

// Auth 全局认证配置
var Auth *auth

func parseAuth() {
	Auth = &auth{
		Mode:        GetDefaultEnv("AUTH_MODE", "header"),
		JWTSecret:   GetDefaultEnv("AUTH_JWT_SECRET", ""),
		JWTIssuer:   GetDefaultEnv("AUTH_JWT_ISSUER", ""),
		RoleClaim:   GetDefaultEnv("AUTH_ROLE_CLAIM", "user_role"),
		DefaultRole: GetDefaultEnv("AUTH_DEFAULT_ROLE", "viewer"),
	}
}

func init() {
	parseAuth()
}
