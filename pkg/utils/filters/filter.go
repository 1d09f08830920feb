// Package filters 把查询条件转换为gorm的clause表达式
package filters

import (
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	FILTER_EQ = iota
	FILTER_NEQ
	FILTER_GT
	FILTER_GTE
	FILTER_LT
	FILTER_LTE
	FILTER_IN
	FILTER_NOT_IN
)

// Filter 可以应用到gorm查询上的过滤器
type Filter interface {
	Filter(db *gorm.DB) *gorm.DB
}

type NewClauseExpressionFunc = func(column string, value interface{}) clause.Expression

var ClauseExpressionMap = map[int]NewClauseExpressionFunc{
	FILTER_EQ: func(column string, value interface{}) clause.Expression {
		return clause.Eq{Column: clause.Column{Name: column}, Value: value}
	},
	FILTER_NEQ: func(column string, value interface{}) clause.Expression {
		return clause.Neq{Column: clause.Column{Name: column}, Value: value}
	},
	FILTER_GT: func(column string, value interface{}) clause.Expression {
		return clause.Gt{Column: clause.Column{Name: column}, Value: value}
	},
	FILTER_GTE: func(column string, value interface{}) clause.Expression {
		return clause.Gte{Column: clause.Column{Name: column}, Value: value}
	},
	FILTER_LT: func(column string, value interface{}) clause.Expression {
		return clause.Lt{Column: clause.Column{Name: column}, Value: value}
	},
	FILTER_LTE: func(column string, value interface{}) clause.Expression {
		return clause.Lte{Column: clause.Column{Name: column}, Value: value}
	},
	FILTER_IN: func(column string, value interface{}) clause.Expression {
		return clause.IN{Column: clause.Column{Name: column}, Values: toValues(value)}
	},
	FILTER_NOT_IN: func(column string, value interface{}) clause.Expression {
		return clause.Not(clause.IN{Column: clause.Column{Name: column}, Values: toValues(value)})
	},
}

// toValues 把切片转换为 []interface{}
func toValues(value interface{}) []interface{} {
	var values []interface{}
	reflectValue := reflect.ValueOf(value)
	if reflectValue.Kind() != reflect.Slice && reflectValue.Kind() != reflect.Array {
		return []interface{}{value}
	}
	for i := 0; i < reflectValue.Len(); i++ {
		values = append(values, reflectValue.Index(i).Interface())
	}
	return values
}

// isEmpty 空字符串、nil、空切片都视为未设置
func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	reflectValue := reflect.ValueOf(value)
	switch reflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		return reflectValue.Len() == 0
	case reflect.Ptr:
		return reflectValue.IsNil()
	}
	return false
}

// FilterOption 单个字段的过滤条件
type FilterOption struct {
	Column string
	Value  interface{}
	Op     int
}

// ParseExpression 解析为clause表达式，值为空时返回nil
func (o *FilterOption) ParseExpression() clause.Expression {
	if isEmpty(o.Value) || o.Column == "" {
		return nil
	}
	value := o.Value
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.ValueOf(value).Elem().Interface()
	}
	if newClauseExpressionFunc, exist := ClauseExpressionMap[o.Op]; exist {
		return newClauseExpressionFunc(strings.TrimSpace(o.Column), value)
	}
	return nil
}

// Filter 实现Filter接口
func (o *FilterOption) Filter(db *gorm.DB) *gorm.DB {
	if c := o.ParseExpression(); c != nil {
		db = db.Clauses(c)
	}
	return db
}
