package executor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// ControlSurface 工作负载控制能力（由外部实现，如internal/pve）
type ControlSurface interface {
	GracefulStop(ctx context.Context, kind models.Kind, id int) error
	ForceStop(ctx context.Context, kind models.Kind, id int) error
	Hibernate(ctx context.Context, id int) error
}

// Config 执行器配置；显式传入，不读任何环境态
type Config struct {
	// TestMode 只记录将要执行的动作，不产生任何实际效果
	TestMode bool
	// SyncAfterAction 每个动作后将脏页刷盘
	SyncAfterAction bool
	// ActionDelay 动作之间的固定间隔
	ActionDelay time.Duration
}

// Executor 对单个计划条目施加动作
type Executor struct {
	surface ControlSurface
	cfg     Config
	logger  logrus.FieldLogger

	// 测试注入点
	sync  func()
	sleep func(time.Duration)
}

// New 创建执行器
func New(surface ControlSurface, cfg Config, logger logrus.FieldLogger) *Executor {
	return &Executor{
		surface: surface,
		cfg:     cfg,
		logger:  logger,
		sync:    unix.Sync,
		sleep:   time.Sleep,
	}
}

// Apply 执行一个计划条目
//
// 单个动作的失败被就地吸收：记录、计入结果，绝不中断计划其余部分。
// 未知动作按优雅关机处理并告警，不静默替换。
func (e *Executor) Apply(ctx context.Context, entry models.PlanEntry) models.ActionOutcome {
	action := entry.Action
	if !action.ValidFor(entry.Kind) {
		e.logger.Warnf("Unknown action %q for %s %d, falling back to graceful shutdown", entry.Action, entry.Kind, entry.ID)
		action = models.ActionShutdown
	}

	fields := logrus.Fields{
		"kind":     entry.Kind,
		"id":       entry.ID,
		"name":     entry.Name,
		"priority": entry.Priority,
		"action":   action,
	}

	if e.cfg.TestMode {
		e.logger.WithFields(fields).WithField("test_mode", true).Info("Would apply planned action")
		e.finish()
		return models.ActionOutcome{Attempted: false, Succeeded: true}
	}

	e.logger.WithFields(fields).Info("Applying planned action")

	err := e.dispatch(ctx, entry.Kind, entry.ID, action)
	if err != nil {
		e.logger.WithFields(fields).Warnf("Action failed: %v", err)
	}

	e.finish()
	return models.ActionOutcome{Attempted: true, Succeeded: err == nil, Err: err}
}

// ForceStop 强停宽限期后仍在运行的工作负载（安全网，与计划动作分开记录）
func (e *Executor) ForceStop(ctx context.Context, w models.Workload) models.ActionOutcome {
	fields := logrus.Fields{
		"kind": w.Kind,
		"id":   w.ID,
		"name": w.DisplayName(),
	}

	if e.cfg.TestMode {
		e.logger.WithFields(fields).WithField("test_mode", true).Info("Would force stop straggler")
		return models.ActionOutcome{Attempted: false, Succeeded: true}
	}

	e.logger.WithFields(fields).Info("Force stopping straggler")

	err := e.surface.ForceStop(ctx, w.Kind, w.ID)
	if err != nil {
		e.logger.WithFields(fields).Warnf("Force stop failed: %v", err)
	}
	if e.cfg.SyncAfterAction {
		e.sync()
	}

	return models.ActionOutcome{Attempted: true, Succeeded: err == nil, Err: err}
}

// dispatch 按(类型,动作)分派控制调用
func (e *Executor) dispatch(ctx context.Context, kind models.Kind, id int, action models.Action) error {
	switch action {
	case models.ActionStop:
		return e.surface.ForceStop(ctx, kind, id)
	case models.ActionHibernate:
		return e.surface.Hibernate(ctx, id)
	default:
		return e.surface.GracefulStop(ctx, kind, id)
	}
}

// finish 动作后的刷盘与固定间隔；测试模式保持相同骨架但间隔为零
func (e *Executor) finish() {
	delay := e.cfg.ActionDelay
	if e.cfg.TestMode {
		delay = 0
	} else if e.cfg.SyncAfterAction {
		e.sync()
	}
	e.sleep(delay)
}
