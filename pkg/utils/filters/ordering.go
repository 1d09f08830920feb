package filters

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderingParam 排序参数的查询参数名
const OrderingParam string = "ordering"

// orderingRegMatch 排序字段：可选的"-"前缀 + 字段名
var orderingRegMatch = regexp.MustCompile(`^(-)?([A-Za-z][\w]*)$`)

// Ordering 多字段排序，"-"前缀表示降序
// 只有在Fields白名单中的字段才会参与排序
type Ordering struct {
	Fields  []string // 允许排序的字段列表
	Value   string   // 排序值，如 "priority" 或 "-created_at" 或 "-priority,due_at"
	Default string   // Value为空或无有效字段时使用
	// Expressions 字段对应的排序表达式，如字符串枚举按等级排序
	Expressions map[string]string
}

// NewOrdering 创建排序对象
func NewOrdering(fields []string, value, defaultValue string) Filter {
	return &Ordering{Fields: fields, Value: value, Default: defaultValue}
}

// inFields 检查字段是否在白名单中
func (o *Ordering) inFields(field string) bool {
	for _, item := range o.Fields {
		if item == field {
			return true
		}
	}
	return false
}

// Columns 解析出有效的排序列
func (o *Ordering) Columns() []clause.OrderByColumn {
	columns := o.parse(o.Value)
	if len(columns) == 0 {
		columns = o.parse(o.Default)
	}
	return columns
}

func (o *Ordering) parse(value string) []clause.OrderByColumn {
	var columns []clause.OrderByColumn
	for _, part := range strings.Split(value, ",") {
		items := orderingRegMatch.FindStringSubmatch(strings.TrimSpace(part))
		if len(items) != 3 || !o.inFields(items[2]) {
			continue
		}
		column := clause.Column{Name: items[2]}
		if expression, ok := o.Expressions[items[2]]; ok {
			column = clause.Column{Name: expression, Raw: true}
		}
		columns = append(columns, clause.OrderByColumn{
			Column: column,
			Desc:   items[1] == "-",
		})
	}
	return columns
}

// Filter 实现Filter接口
func (o *Ordering) Filter(db *gorm.DB) *gorm.DB {
	columns := o.Columns()
	if len(columns) == 0 {
		return db
	}
	return db.Clauses(clause.OrderBy{Columns: columns})
}
