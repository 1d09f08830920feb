package filters

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilterAction 多个过滤条件的组合，条件之间为AND
type FilterAction struct {
	Options []*FilterOption
}

// NewFilterAction 创建过滤动作，没有有效条件时返回nil
func NewFilterAction(options ...*FilterOption) Filter {
	var valid []*FilterOption
	for _, opt := range options {
		if opt != nil && opt.ParseExpression() != nil {
			valid = append(valid, opt)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return &FilterAction{Options: valid}
}

// Filter 实现Filter接口
func (f *FilterAction) Filter(db *gorm.DB) *gorm.DB {
	conds := []clause.Expression{}
	for _, opt := range f.Options {
		if c := opt.ParseExpression(); c != nil {
			conds = append(conds, c)
		}
	}
	if len(conds) > 0 {
		db = db.Clauses(conds...)
	}
	return db
}

// Apply 依次应用过滤器，跳过nil
func Apply(db *gorm.DB, filterActions ...Filter) *gorm.DB {
	for _, filterAction := range filterActions {
		if filterAction != nil {
			db = filterAction.Filter(db)
		}
	}
	return db
}
