package lock

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning 锁已被另一次运行持有
var ErrAlreadyRunning = errors.New("another shutdown run already holds the lock")

// RunLock 主机级互斥锁，保证同一时刻只有一次关机编排
//
// 基于flock(2)的建议锁：随进程退出由内核自动释放，
// 即使持有方异常终止也不会残留。
type RunLock struct {
	fl *flock.Flock
}

// Acquire 非阻塞获取运行锁；已被持有时立即返回ErrAlreadyRunning，从不排队等待
func Acquire(path string) (*RunLock, error) {
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	return &RunLock{fl: fl}, nil
}

// Release 释放运行锁；每条退出路径都必须调用
func (l *RunLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release run lock %s: %w", l.fl.Path(), err)
	}
	return nil
}
