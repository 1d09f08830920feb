package core

// Actor 当前操作人
type Actor struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// SystemActor 系统自动操作使用的身份
func SystemActor(id string) *Actor {
	return &Actor{ID: id, Role: RoleSystem}
}

// Gin Context中的认证信息键名
const (
	ContextKeyUserID          = "user_id"          // 用户ID
	ContextKeyUserRole        = "user_role"        // 用户角色
	ContextKeyAuthType        = "auth_type"        // 认证类型：jwt / header
	ContextKeyIsAuthenticated = "is_authenticated" // 是否已认证
)
