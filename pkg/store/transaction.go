package store

import (
	"context"
	"errors"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// txKey ctx中保存事务的键
type txKey struct{}

// transactor 基于gorm的事务执行器
type transactor struct {
	db *gorm.DB
}

// NewTransactor 创建Transactor实例
func NewTransactor(db *gorm.DB) core.Transactor {
	return &transactor{db: db}
}

// RunInTransaction 在事务中执行fn，已在事务中时复用外层事务
func (t *transactor) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 优先使用ctx中的事务
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// uniqueViolation 是否违反唯一约束，constraint为空时匹配任意唯一约束
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
