package types

// Pagination 分页参数
type Pagination struct {
	Page     int
	PageSize int
}

// GetOffset 计算偏移量
func (p *Pagination) GetOffset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// PaginationConfig 分页配置
type PaginationConfig struct {
	MaxPage            int
	PageQueryParam     string
	MaxPageSize        int
	PageSizeQueryParam string
}
