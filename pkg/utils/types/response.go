package types

// Response 统一响应格式，code为0表示成功
type Response struct {
	Code    int         `json:"code"`
	Error   string      `json:"error,omitempty"` // 稳定的错误码，便于前端展示对应提示
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// ResponseList 列表响应
type ResponseList struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Count    int64       `json:"count"`
	Results  interface{} `json:"results"`
}
