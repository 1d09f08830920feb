package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type testRow struct {
	ID       int
	Status   string
	Module   string
	Priority string
}

func (testRow) TableName() string {
	return "approval_requests"
}

// dryRunDB 不连接数据库，只生成SQL
func dryRunDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestOrderingColumns(t *testing.T) {
	o := &Ordering{Fields: []string{"due_at", "created_at"}, Value: "-due_at,created_at,password"}
	columns := o.Columns()
	require.Len(t, columns, 2)
	assert.Equal(t, "due_at", columns[0].Column.Name)
	assert.True(t, columns[0].Desc)
	assert.Equal(t, "created_at", columns[1].Column.Name)
	assert.False(t, columns[1].Desc)
}

func TestOrderingFallsBackToDefault(t *testing.T) {
	o := &Ordering{Fields: []string{"due_at"}, Value: "drop table", Default: "-due_at"}
	columns := o.Columns()
	require.Len(t, columns, 1)
	assert.True(t, columns[0].Desc)

	o = &Ordering{Fields: []string{"due_at"}}
	assert.Empty(t, o.Columns())
}

func TestNewFilterActionSkipsEmptyValues(t *testing.T) {
	assert.Nil(t, NewFilterAction(
		&FilterOption{Column: "status", Value: "", Op: FILTER_EQ},
		&FilterOption{Column: "module", Value: nil, Op: FILTER_EQ},
		&FilterOption{Column: "status", Value: []string{}, Op: FILTER_IN},
	))

	action := NewFilterAction(
		&FilterOption{Column: "status", Value: "in_review", Op: FILTER_EQ},
		&FilterOption{Column: "module", Value: "", Op: FILTER_EQ},
	)
	require.NotNil(t, action)
	assert.Len(t, action.(*FilterAction).Options, 1)
}

func TestFilterBuildsSQL(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		query := Apply(tx.Model(&testRow{}),
			NewFilterAction(
				&FilterOption{Column: "module", Value: "ghg_accounting", Op: FILTER_EQ},
				&FilterOption{Column: "status", Value: []string{"pending_review", "in_review"}, Op: FILTER_IN},
			),
			nil,
			NewOrdering([]string{"due_at"}, "-due_at", ""),
		)
		var rows []testRow
		return query.Find(&rows)
	})

	assert.Contains(t, sql, `"module" = 'ghg_accounting'`)
	assert.Contains(t, sql, `"status" IN ('pending_review','in_review')`)
	assert.Contains(t, sql, `ORDER BY "due_at" DESC`)
}

func TestOrderingExpressions(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		ordering := &Ordering{
			Fields:      []string{"priority", "due_at"},
			Value:       "-priority,due_at",
			Expressions: map[string]string{"priority": "CASE priority WHEN 'low' THEN 1 ELSE 2 END"},
		}
		var rows []testRow
		return ordering.Filter(tx.Model(&testRow{})).Find(&rows)
	})

	assert.Contains(t, sql, `ORDER BY CASE priority WHEN 'low' THEN 1 ELSE 2 END DESC,"due_at"`)
}
