package controllers

import (
	"github.com/S-FND/fnd1-sub000/pkg/utils/types"
)

var pageConfig *types.PaginationConfig

func SetPaginationConfig(config *types.PaginationConfig) {
	pageConfig = config
}

func init() {
	SetPaginationConfig(&types.PaginationConfig{
		MaxPage:            1000,
		PageQueryParam:     "page",
		MaxPageSize:        300,
		PageSizeQueryParam: "page_size",
	})
}
