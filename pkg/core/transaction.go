package core

import "context"

// Transactor 事务执行器
// fn 内通过ctx使用的所有Store操作处于同一事务；fn返回错误时全部回滚
// 已在事务中时直接复用外层事务
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
